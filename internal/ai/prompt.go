package ai

import (
	"fmt"
	"strings"

	"ambitious/internal/model"
	"ambitious/internal/util"
)

var postTypeGuides = map[model.PostType]string{
	model.PostTypeWin:     "Share a recent win or accomplishment, big or small, and how it felt.",
	model.PostTypeDream:   "Share a dream or goal you are working toward and why it matters to you.",
	model.PostTypeAsk:     "Ask the community for advice, recommendations or opinions on something you are figuring out.",
	model.PostTypeHangout: "Invite people to hang out, meet up, or join an activity you are planning.",
	model.PostTypeIntro:   "Introduce yourself to the community: who you are and what you are into.",
	model.PostTypeGeneral: "Share a thought, observation or update from your day.",
}

var toneGuides = map[model.Tone]string{
	model.ToneFriendly:     "warm and approachable",
	model.ToneProfessional: "polished and knowledgeable",
	model.ToneCasual:       "relaxed and conversational",
	model.ToneInspiring:    "uplifting and motivating",
	model.ToneHumorous:     "light and witty",
}

var styleGuides = map[model.EngagementStyle]string{
	model.StyleSupportive:   "Be encouraging and validate what they shared.",
	model.StyleCurious:      "Ask a genuine follow-up question about what they shared.",
	model.StyleEnthusiastic: "Show real excitement about what they shared.",
	model.StyleThoughtful:   "Add a considered perspective or a related experience.",
}

// historyItemLimit bounds each previous post quoted back to the model.
const historyItemLimit = 200

func identity(p Persona) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a member of a social community for ambitious people.\n", p.Name)
	if strings.TrimSpace(p.Prompt) != "" {
		b.WriteString(strings.TrimSpace(p.Prompt))
		b.WriteString("\n")
	} else if p.Description != "" {
		fmt.Fprintf(&b, "About you: %s\n", p.Description)
	}
	if g, ok := toneGuides[p.Tone]; ok {
		fmt.Fprintf(&b, "Your voice is %s.\n", g)
	}
	b.WriteString("Write like a real person on a social app. Never mention being an AI or a bot.")
	return b.String()
}

// PostSystemPrompt conditions the model on who is writing.
func PostSystemPrompt(p Persona) string {
	return identity(p) + "\nOutput only the post text: no title, no label, no surrounding quotes."
}

// PostUserPrompt asks for one post and lists previous posts as material to avoid.
func PostUserPrompt(req PostRequest) string {
	var b strings.Builder
	guide, ok := postTypeGuides[req.PostType]
	if !ok {
		guide = postTypeGuides[model.PostTypeGeneral]
	}
	fmt.Fprintf(&b, "Write one new \"%s\" post. %s\n", req.PostType, guide)
	if len(req.Persona.Topics) > 0 {
		fmt.Fprintf(&b, "Draw on one of your interests: %s.\n", strings.Join(req.Persona.Topics, ", "))
	}
	b.WriteString("Keep it under 500 characters, 1 to 3 short paragraphs. At most one emoji. No hashtags.\n")
	if len(req.PreviousPosts) > 0 {
		b.WriteString("\nYour previous posts are below. Do NOT repeat their openings, ideas, structure or phrasing. ")
		b.WriteString("Start differently and cover a different angle:\n")
		for _, prev := range req.PreviousPosts {
			fmt.Fprintf(&b, "- %s\n", util.Truncate(util.NormalizeWhitespace(prev), historyItemLimit))
		}
	}
	return b.String()
}

// CommentSystemPrompt conditions the model for a short reply.
func CommentSystemPrompt(p Persona, style model.EngagementStyle) string {
	guide, ok := styleGuides[style]
	if !ok {
		guide = styleGuides[model.StyleSupportive]
	}
	return identity(p) + "\n" + guide + "\nOutput only the comment text."
}

// CommentUserPrompt quotes the target post.
func CommentUserPrompt(req CommentRequest) string {
	author := req.AuthorUsername
	if author == "" {
		author = "someone"
	}
	return fmt.Sprintf("@%s posted a \"%s\" post:\n\"%s\"\n\nWrite a short reply (1-2 sentences, under 200 characters) that responds to what they actually said.",
		author, req.PostType, util.Truncate(util.NormalizeWhitespace(req.PostContent), 1000))
}
