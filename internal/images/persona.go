package images

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ambitious/internal/ai"
	"ambitious/internal/model"
	"ambitious/internal/util"
)

var ErrNoVisualPersona = errors.New("npc has no visual persona")

const visualPersonaSystem = `You design the consistent visual appearance of a social media character.
Respond with JSON only, in exactly this shape:
{"gender": "", "age_range": "", "ethnicity": "", "hair_style": "", "hair_color": "", "eye_color": "", "body_type": "",
 "style_of_dress": "", "distinct_features": "", "typical_environments": ["", ""], "photography_style": ""}`

// GenerateVisualPersona asks the text provider to design a look that fits the persona.
func GenerateVisualPersona(ctx context.Context, c ai.Completer, npc model.NPCProfile) (model.VisualPersona, error) {
	var user strings.Builder
	fmt.Fprintf(&user, "Name: %s\n", npc.PersonaName)
	if npc.PersonaDescription != "" {
		fmt.Fprintf(&user, "Description: %s\n", npc.PersonaDescription)
	}
	if npc.PersonaPrompt != "" {
		fmt.Fprintf(&user, "Character notes: %s\n", util.Truncate(npc.PersonaPrompt, 1500))
	}
	if len(npc.Topics) > 0 {
		fmt.Fprintf(&user, "Interests: %s\n", strings.Join(npc.Topics, ", "))
	}
	out, err := c.Complete(ctx, visualPersonaSystem, user.String())
	if err != nil {
		return model.VisualPersona{}, err
	}
	var vp model.VisualPersona
	if err := json.Unmarshal([]byte(util.CleanJSON(out)), &vp); err != nil {
		return model.VisualPersona{}, fmt.Errorf("parse visual persona: %w", err)
	}
	if vp.Gender == "" && vp.AgeRange == "" && vp.HairColor == "" {
		return model.VisualPersona{}, errors.New("parse visual persona: empty description")
	}
	return vp, nil
}

// ReferencePortraitPrompt is the prompt for a character's canonical portrait.
func ReferencePortraitPrompt(vp model.VisualPersona) string {
	b := Brief{
		Prompt:                 "A friendly head-and-shoulders portrait looking at the camera, neutral background.",
		ShouldIncludeCharacter: true,
	}
	photo := vp
	photo.Environments = nil
	return BuildCompleteImagePrompt(b, model.ImageStylePhoto, &photo)
}

// GenerateReferenceImage renders and uploads the portrait later posts are kept consistent with.
func (p *Pipeline) GenerateReferenceImage(ctx context.Context, npc model.NPCProfile) (string, error) {
	if !p.Enabled() {
		return "", ErrDisabled
	}
	if npc.VisualPersona == nil {
		return "", ErrNoVisualPersona
	}
	return p.render(ctx, npc.ID, "reference", ReferencePortraitPrompt(*npc.VisualPersona), nil)
}
