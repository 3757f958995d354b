package images

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ambitious/internal/ai"
	"ambitious/internal/model"
	"ambitious/internal/util"
)

// Brief is the structured image request derived from a finished post.
type Brief struct {
	Prompt                 string `json:"prompt"`
	ShouldIncludeCharacter bool   `json:"shouldIncludeCharacter"`
	SceneDescription       string `json:"sceneDescription"`
	// Fallback marks a templated brief built without the model's help.
	Fallback bool `json:"-"`
}

const briefSystem = `You turn social media posts into image briefs for an image model.
Respond with JSON only, no prose, in exactly this shape:
{"prompt": "one-sentence image prompt", "shouldIncludeCharacter": true, "sceneDescription": "setting, objects, lighting, mood"}
Set shouldIncludeCharacter to true only when the post is about the author doing or experiencing something in person.`

// GenerateImagePrompt asks the text provider for a Brief. An unparsable answer yields a templated brief;
// only a failed provider call returns an error.
func GenerateImagePrompt(ctx context.Context, c ai.Completer, content string, postType model.PostType, style model.ImageStyle, vp *model.VisualPersona) (Brief, error) {
	var user strings.Builder
	fmt.Fprintf(&user, "Post type: %s\nPreferred style: %s\n", postType, styleName(style))
	if vp != nil {
		fmt.Fprintf(&user, "The author looks like: %s\n", describeCharacter(*vp))
	}
	fmt.Fprintf(&user, "Post:\n%s", content)
	out, err := c.Complete(ctx, briefSystem, user.String())
	if err != nil {
		return Brief{}, err
	}
	var b Brief
	if err := json.Unmarshal([]byte(util.CleanJSON(out)), &b); err != nil || strings.TrimSpace(b.Prompt) == "" {
		return FallbackBrief(content, vp), nil
	}
	if vp == nil {
		b.ShouldIncludeCharacter = false
	}
	return b, nil
}

// FallbackBrief builds a deterministic brief from the raw post text.
func FallbackBrief(content string, vp *model.VisualPersona) Brief {
	scene := util.Truncate(util.NormalizeWhitespace(content), 300)
	if scene == "" {
		scene = "an everyday moment worth sharing with friends"
	}
	return Brief{
		Prompt:                 "An authentic social media photo capturing: " + scene,
		ShouldIncludeCharacter: vp != nil,
		SceneDescription:       scene,
		Fallback:               true,
	}
}

// BuildCompleteImagePrompt assembles the final prompt sent to the image model.
func BuildCompleteImagePrompt(b Brief, style model.ImageStyle, vp *model.VisualPersona) string {
	parts := []string{styleInstruction(style)}
	if b.ShouldIncludeCharacter && vp != nil {
		parts = append(parts, "Main subject: "+describeCharacter(*vp)+".")
	}
	if b.Prompt != "" {
		parts = append(parts, b.Prompt)
	}
	if b.SceneDescription != "" && b.SceneDescription != b.Prompt {
		parts = append(parts, "Scene: "+b.SceneDescription)
	}
	if vp != nil {
		if len(vp.Environments) > 0 {
			parts = append(parts, "Typical settings: "+strings.Join(vp.Environments, ", ")+".")
		}
		if vp.PhotoStyle != "" {
			parts = append(parts, "Photography style: "+vp.PhotoStyle+".")
		}
	}
	parts = append(parts, "No text, captions, logos or watermarks.")
	return strings.Join(parts, "\n")
}

func styleName(s model.ImageStyle) string {
	if s == "" {
		return string(model.ImageStylePhoto)
	}
	return string(s)
}

func styleInstruction(s model.ImageStyle) string {
	switch s {
	case model.ImageStyleIllustration:
		return "Style: clean modern digital illustration, soft palette, friendly."
	case model.ImageStyleMixed:
		return "Style: either a candid photo or a stylized illustration, whichever fits the scene best."
	default:
		return "Style: candid smartphone photo, natural light, realistic, unposed."
	}
}

func describeCharacter(vp model.VisualPersona) string {
	var who []string
	for _, s := range []string{vp.AgeRange, vp.Ethnicity, vp.Gender} {
		if s != "" {
			who = append(who, s)
		}
	}
	desc := "a person"
	if len(who) > 0 {
		desc = "a " + strings.Join(who, " ")
	}
	var details []string
	if vp.HairColor != "" || vp.HairStyle != "" {
		details = append(details, strings.TrimSpace(vp.HairColor+" "+vp.HairStyle)+" hair")
	}
	if vp.EyeColor != "" {
		details = append(details, vp.EyeColor+" eyes")
	}
	if vp.BodyType != "" {
		details = append(details, vp.BodyType+" build")
	}
	if vp.StyleOfDress != "" {
		details = append(details, "dressed in "+vp.StyleOfDress)
	}
	if vp.DistinctFeature != "" {
		details = append(details, vp.DistinctFeature)
	}
	if len(details) > 0 {
		desc += " with " + strings.Join(details, ", ")
	}
	return desc
}
