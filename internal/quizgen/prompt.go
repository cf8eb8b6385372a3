package quizgen

import "fmt"

const systemPrompt = `You are a quiz author. Respond with ONLY a JSON array of question objects, no markdown fences and no commentary. Each object must have exactly these fields:
  "question_text": the question as a string
  "options": an array of exactly 4 distinct answer strings
  "correct_answer": a string that is identical to one entry of "options"
Every question must be answerable from general knowledge of the topic.`

// BuildPrompt returns the system and user prompts for generating count
// multiple-choice questions about topic.
func BuildPrompt(topic string, count int) (system, user string) {
	user = fmt.Sprintf("Write %d multiple-choice quiz questions about %q.", count, topic)
	return systemPrompt, user
}
