package tutor

import (
	"fmt"
	"strings"

	"verbtutor/internal/contract"
)

// Trigger opens a session. It is sent with the bootstrap request only and is
// never committed.
const Trigger = "Please start the session with a fill-in-the-blank sentence."

const systemPromptTemplate = `IMPORTANT: Your entire response for an exercise MUST strictly follow this four-part structure, using ONLY the allowed irregular verbs: 1. A Portuguese sentence with a blank (____). 2. A brief English meaning and subject for that sentence. 3. The verb hint: 'The missing verb is '[PORTUGUESE_INFINITIVE]' (to [ENGLISH_TRANSLATION]).' 4. The prompt: 'Please type the correct conjugated verb in the blank.' Do NOT output any other conversational text or any labels for these parts.
You help learners practice conjugating a fixed list of Brazilian Portuguese irregular verbs.
Provide fill-in-the-blank sentence exercises. Focus ONLY on simple (single-word) irregular verbs from this list: %s.
Before forming any part of an exercise, first select a verb from the allowed list and make sure it is the most natural fit. If a sentence idea would better fit a regular verb or an unlisted irregular verb, discard it and find a new one that uses an allowed verb. Never present an exercise with a non-allowed verb.
ONLY test these verbs in their simple (single-word) present, preterite, or imperfect indicative forms. NO compound tenses, NO subjunctive, NO imperative. The answer must ALWAYS be a single word, so the sentence has exactly one blank.
If another verb or a compound form is more natural for the blank, do NOT use that sentence.

--- HOW TO ASK A QUESTION ---
Output only the content of each component, each on its own line, without letters, numbers or labels such as 'Sentence:' or 'Prompt:'.
First the Portuguese sentence with the blank (for example 'Eu ____ ao cinema hoje.'). Then the brief English meaning and subject. Then the verb hint 'The missing verb is '[PORTUGUESE_INFINITIVE]' (to [ENGLISH_TRANSLATION]).' naming an allowed verb. Then 'Please type the correct conjugated verb in the blank.'

--- HOW TO HANDLE THE LEARNER'S ANSWER ---
1. Evaluate the answer first and give full feedback before the next question.
2. Be lenient on case. If the typed word matches the correct form exactly, it MUST be marked '✅ Correct!'. If only an accent is missing or wrong, use '✅ Correct!' or 'Not quite!' and point out the accent. Otherwise start with 'Not correct.' (or 'Not quite!' for near misses such as the wrong tense of the right verb).
3. If correct, state the full correct sentence, and list any other simple indicative forms of the hinted verb that are also correct, with their meaning. If incorrect, explain why and show the correct form and the full sentence.
4. Then immediately give a new exercise following the structure above. Do not ask whether the learner wants to continue.

--- GENERAL STYLE ---
Be encouraging. Use English, except for Portuguese in examples and verbs. Use proclisis. No general grammar questions. Do not repeat exercises.`

// SystemPrompt renders the instruction contract for the allowed verbs.
func SystemPrompt(allowed []string) string {
	return fmt.Sprintf(systemPromptTemplate, strings.Join(allowed, ", "))
}

// correction is the steering turn sent after a rejected candidate. It names
// every violation kind found.
func correction(vs contract.Violations) string {
	var b strings.Builder
	b.WriteString("Your previous exercise broke the exercise rules and was not shown to the learner.")
	for _, k := range vs.Kinds() {
		details := vs.Details(k)
		b.WriteString(" ")
		switch k {
		case contract.KindDisallowedVerb:
			if len(details) == 0 {
				b.WriteString("You did not name the verb with 'The missing verb is '<infinitive>''.")
			} else {
				fmt.Fprintf(&b, "You used a disallowed verb (%s).", quoteAll(details))
			}
		case contract.KindCompoundAnswer:
			fmt.Fprintf(&b, "The answer must be one word, but it needed more than one (%s).", quoteAll(details))
		case contract.KindAmbiguousAlternative:
			fmt.Fprintf(&b, "You suggested a better or compound alternative (%s).", quoteAll(details))
		}
	}
	b.WriteString(" Do not apologize to the learner. Regenerate the whole reply using only an allowed irregular verb, a single-word answer, and no compound or more natural alternative.")
	return b.String()
}

func quoteAll(in []string) string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = "'" + s + "'"
	}
	return strings.Join(out, ", ")
}
