package synth

import "testing"

func TestValidateThai(t *testing.T) {
	v := NewValidator("Thai", []string{"Han", "Hangul", "Hiragana", "Katakana"}, 5)

	tests := []struct {
		name string
		text string
		ok   bool
	}{
		{"thai only", "สวัสดีค่ะ วันนี้เป็นยังไงบ้าง", true},
		{"thai with emoji", "สวัสดีค่ะ 🌸", true},
		{"thai with some latin", "สั่งผ่าน LINE ได้เลยค่ะ", true},
		{"empty", "", false},
		{"english only", "Hello, how are you?", false},
		{"chinese drift", "สวัสดี 你好你好你好你好你好", false},
		{"few cjk tolerated", "สวัสดีค่ะ 寿司 อร่อยนะ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.text)
			if tt.ok && err != nil {
				t.Errorf("Validate(%q) = %v, want ok", tt.text, err)
			}
			if !tt.ok && err == nil {
				t.Errorf("Validate(%q) = ok, want error", tt.text)
			}
		})
	}
}

func TestValidateUnknownScript(t *testing.T) {
	v := NewValidator("NotAScript", nil, 0)

	if err := v.Validate("anything goes"); err != nil {
		t.Errorf("unknown script should disable the positive check: %v", err)
	}
	if err := v.Validate(""); err == nil {
		t.Error("empty output must always be rejected")
	}
}
