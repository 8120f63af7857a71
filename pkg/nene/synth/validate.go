// validate.go implements the output sanity gate: generated text must look
// like the persona's language before it is sent. This is a cheap script-based
// heuristic, not language detection — it exists to catch the model drifting
// into the wrong language or returning garbage.
package synth

import (
	"fmt"
	"unicode"
)

// Validator checks that generated text is plausibly in the expected script.
type Validator struct {
	expected  *unicode.RangeTable
	forbidden []*unicode.RangeTable

	expectedName string
	maxForeign   int
}

// NewValidator builds a validator for the given Unicode script name
// (e.g. "Thai"). Letters from any of the forbidden scripts are tolerated up
// to maxForeign occurrences. Unknown script names are ignored.
func NewValidator(expectedScript string, forbiddenScripts []string, maxForeign int) *Validator {
	v := &Validator{
		expectedName: expectedScript,
		maxForeign:   maxForeign,
	}
	if rt, ok := unicode.Scripts[expectedScript]; ok {
		v.expected = rt
	}
	for _, name := range forbiddenScripts {
		if rt, ok := unicode.Scripts[name]; ok {
			v.forbidden = append(v.forbidden, rt)
		}
	}
	return v
}

// Validate returns an error when the text is empty, contains no character of
// the expected script, or contains too many characters from forbidden
// scripts. An unknown expected script disables the positive check.
func (v *Validator) Validate(text string) error {
	if text == "" {
		return fmt.Errorf("empty output")
	}

	var expectedCount, foreignCount int
	for _, r := range text {
		if v.expected != nil && unicode.Is(v.expected, r) {
			expectedCount++
		}
		for _, rt := range v.forbidden {
			if unicode.Is(rt, r) {
				foreignCount++
				break
			}
		}
	}

	if v.expected != nil && expectedCount == 0 {
		return fmt.Errorf("no %s characters in output", v.expectedName)
	}
	if foreignCount >= v.maxForeign && v.maxForeign > 0 {
		return fmt.Errorf("%d characters from forbidden scripts (limit %d)", foreignCount, v.maxForeign)
	}
	return nil
}

// ExpectedScript returns the configured script name, used to phrase the
// stricter retry instruction.
func (v *Validator) ExpectedScript() string {
	return v.expectedName
}
