package generation

import (
	"fmt"
	"strings"

	"review-responder/internal/models"
)

// Message is one turn of the chat exchange sent to the completion provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// variantBriefs describes the semantic contract of each accent, in the fixed
// order. The model matches these tags verbatim, so the wording of the tag
// itself must stay identical to the taxonomy constants.
var variantBriefs = []struct {
	accent models.Accent
	brief  string
}{
	{models.AccentNeutral, "balanced and professional, suitable for any public page"},
	{models.AccentEmpathetic, "openly acknowledges the customer's feelings before anything else"},
	{models.AccentSolutionFocused, "offers one concrete next step the customer can take"},
	{models.AccentPassiveAggressive, "firm and composed; never apologizes, whatever the business rules allow"},
	{models.AccentHardcore, "uses humor and light sarcasm; never profanity and never a direct insult"},
}

// ratingPhrases translates a 1-5 star rating into the descriptive phrase
// injected into the user prompt.
var ratingPhrases = map[int]string{
	1: "The customer left the lowest possible rating (1 of 5) and is clearly upset.",
	2: "The customer left a low rating (2 of 5) and is dissatisfied.",
	3: "The customer left a middling rating (3 of 5); the experience was mixed.",
	4: "The customer left a good rating (4 of 5) with some reservations.",
	5: "The customer left the highest rating (5 of 5) and is happy.",
}

// BuildSystemPrompt renders the system instruction for one generation call.
// Pure and deterministic: same inputs, same string. The closing contract
// block must stay in lockstep with the parser's schema in schema.go.
func BuildSystemPrompt(profile *models.BusinessProfile, includeHardcore bool) string {
	var parts []string

	if profile != nil && profile.Name != "" {
		parts = append(parts, fmt.Sprintf(
			"You reply to customer reviews on behalf of %s, a %s.",
			profile.Name, profile.Category.Label()))
	} else {
		parts = append(parts, "You reply to customer reviews on behalf of a business.")
	}
	parts = append(parts,
		"You write the public answer the owner will post under the review.",
		"Stay polite toward the customer, never admit legal liability, and never share internal information.")

	if profile != nil {
		if profile.Description != "" {
			parts = append(parts, "\nAbout the business: "+profile.Description)
		}
		if profile.Specialties != "" {
			parts = append(parts, "Specialties: "+profile.Specialties)
		}
		if len(profile.Strengths) > 0 {
			parts = append(parts, "Strengths that may be mentioned with pride: "+strings.Join(profile.Strengths, "; "))
		}
		if len(profile.KnownIssues) > 0 {
			parts = append(parts, "Known recurring complaints — do not deny these if the customer raises them: "+strings.Join(profile.KnownIssues, "; "))
		}
		parts = append(parts, "\nVoice:")
		parts = append(parts, toneClauses(profile.Tone)...)
		parts = append(parts, "\nContent rules:")
		parts = append(parts, ruleLines(profile.Rules)...)
	}

	parts = append(parts, "\nProduce the following reply variants, in this exact order:")
	n := len(variantBriefs) - 1
	if includeHardcore {
		n = len(variantBriefs)
	}
	for i := 0; i < n; i++ {
		parts = append(parts, fmt.Sprintf("%d. accent %q — %s", i+1, variantBriefs[i].accent, variantBriefs[i].brief))
	}

	parts = append(parts, "\n"+outputContract(includeHardcore))

	// Owner overrides go last so they sit closest to the generation
	// instruction and win over anything stated above.
	if profile != nil && profile.OwnerRules != "" {
		parts = append(parts, "\nOwner's own rules, these take precedence over everything above: "+profile.OwnerRules)
	}

	return strings.Join(parts, "\n")
}

// BuildUserPrompt renders the user instruction carrying the review itself.
func BuildUserPrompt(reviewText string, opts models.GenerateOptions) string {
	var parts []string

	parts = append(parts, "Customer review:")
	parts = append(parts, `"""`+reviewText+`"""`)

	if opts.Rating >= 1 && opts.Rating <= 5 {
		parts = append(parts, ratingPhrases[opts.Rating])
	}
	if opts.OwnerContext != "" {
		parts = append(parts, "\nWhat really happened, according to the owner: "+opts.OwnerContext)
		parts = append(parts, "If the owner's account shows the customer acted unreasonably, do not apologize and do not concede fault. This is a hard requirement.")
	}
	if opts.Adjustment != "" {
		parts = append(parts, "\nAdjustment from the owner: "+opts.Adjustment)
	}

	return strings.Join(parts, "\n")
}

// BuildMessages assembles the full chat exchange. The regeneration path
// replays the prior output as an assistant turn followed by a user turn that
// carries only the adjustment, so the model revises what it already said
// instead of starting cold. Only the most recent response set is replayed;
// history is never accumulated beyond that single turn.
func BuildMessages(reviewText string, profile *models.BusinessProfile, opts models.GenerateOptions) []Message {
	system := Message{Role: RoleSystem, Content: BuildSystemPrompt(profile, opts.IncludeHardcore)}

	if len(opts.PreviousResponses) > 0 && opts.Adjustment != "" {
		return []Message{
			system,
			{Role: RoleUser, Content: BuildUserPrompt(reviewText, models.GenerateOptions{
				Rating:       opts.Rating,
				OwnerContext: opts.OwnerContext,
			})},
			{Role: RoleAssistant, Content: replayResponses(opts.PreviousResponses)},
			{Role: RoleUser, Content: "Revise your previous variants: " + opts.Adjustment +
				"\nReturn the full JSON object again, same shape, all variants."},
		}
	}

	return []Message{
		system,
		{Role: RoleUser, Content: BuildUserPrompt(reviewText, opts)},
	}
}

func toneClauses(t models.ToneSettings) []string {
	var out []string
	switch {
	case t.Formality >= 67:
		out = append(out, "- Write formally, the way an official company statement reads.")
	case t.Formality <= 33:
		out = append(out, "- Keep the voice relaxed and casual, like talking to a neighbor.")
	default:
		out = append(out, "- Keep a balanced, conversational register.")
	}
	switch {
	case t.Empathy >= 67:
		out = append(out, "- Be warm; show the customer their experience genuinely matters.")
	case t.Empathy <= 33:
		out = append(out, "- Stay reserved and matter-of-fact; no emotional language.")
	default:
		out = append(out, "- Show moderate warmth without overdoing it.")
	}
	switch {
	case t.Brevity >= 67:
		out = append(out, "- Keep every reply short, two or three sentences at most.")
	case t.Brevity <= 33:
		out = append(out, "- Replies may be detailed and unhurried.")
	default:
		out = append(out, "- Keep replies reasonably compact, one short paragraph.")
	}
	return out
}

func ruleLines(r models.RuleSet) []string {
	allow := func(ok bool, what string) string {
		if ok {
			return "- You may " + what + "."
		}
		return "- You must NOT " + what + "."
	}
	return []string{
		allow(r.CanApologize, "apologize on behalf of the business"),
		allow(r.CanOfferPromo, "offer a promo code"),
		allow(r.CanOfferCompensation, "offer compensation or a refund"),
		allow(r.CanOfferCallback, "offer a call back or ask for contact details"),
	}
}
