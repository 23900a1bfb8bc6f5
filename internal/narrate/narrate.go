// Package narrate renders user-facing text for game outcomes. Templates are
// plain text/template strings with the sprig function map available, so
// asset authors can override the defaults without touching code.
package narrate

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/pixil98/go-skirmish/internal/combat"
	"github.com/pixil98/go-skirmish/internal/turn"
)

var templateFuncs = sprig.TxtFuncMap()

// Expand expands a template string against the provided data.
func Expand(tmplStr string, data any) (string, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}

	return buf.String(), nil
}

var denialText = map[turn.DenialReason]string{
	turn.DenialNotInMatch:       "You are not in a match.",
	turn.DenialNotYourTurn:      "It is not your turn.",
	turn.DenialIsDead:           "You are dead.",
	turn.DenialAwaitingResponse: "Your previous action is still being resolved.",
}

// DenialText returns the player-facing line for an admission denial.
func DenialText(reason turn.DenialReason) string {
	if text, ok := denialText[reason]; ok {
		return text
	}
	return "You cannot do that right now."
}

const (
	missTemplate = "{{ .AttackerId }} swings at {{ .TargetId }} and misses!"
	hitTemplate  = "{{ .AttackerId }} {{ verb .Damage .Critical }} {{ .TargetId }} for {{ .Damage }} damage" +
		"{{ if .Critical }} (critical!){{ end }}" +
		"{{ if gt .DefenseBonus 0 }}, softened by terrain{{ end }}."
)

var damageVerbs = []struct {
	maxDamage int
	verb      string
}{
	{2, "grazes"},
	{5, "strikes"},
	{10, "wounds"},
	{17, "batters"},
	{25, "mauls"},
	{40, "devastates"},
}

// DamageVerb returns the verb for a damage amount.
func DamageVerb(damage int, critical bool) string {
	if critical {
		return "crushes"
	}
	for _, v := range damageVerbs {
		if damage <= v.maxDamage {
			return v.verb
		}
	}
	return "obliterates"
}

// AttackLine renders a combat result as a single line of narration.
func AttackLine(res combat.Result) string {
	switch r := res.(type) {
	case combat.Invalid:
		return fmt.Sprintf("The attack cannot be made: %s.", r.Reason)
	case combat.Miss:
		line, err := Expand(missTemplate, r)
		if err != nil {
			return fmt.Sprintf("%s misses %s.", r.AttackerId, r.TargetId)
		}
		return line
	case combat.Hit:
		tmpl, err := template.New("").Funcs(templateFuncs).
			Funcs(template.FuncMap{"verb": DamageVerb}).Parse(hitTemplate)
		if err != nil {
			return fmt.Sprintf("%s hits %s for %d.", r.AttackerId, r.TargetId, r.Damage)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, r); err != nil {
			return fmt.Sprintf("%s hits %s for %d.", r.AttackerId, r.TargetId, r.Damage)
		}
		return buf.String()
	default:
		return "Nothing happens."
	}
}
