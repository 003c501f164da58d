package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

func newValidate() *validator.Validate {
	v := validator.New()
	RegisterOn(v)
	return v
}

func TestUsername(t *testing.T) {
	v := newValidate()
	tests := []struct {
		value string
		valid bool
	}{
		{"alice", true},
		{"alice.kim+ops@corp", true},
		{"홍길동", true},
		{"has space", false},
		{"semi;colon", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			err := v.Var(tt.value, "username")
			if (err == nil) != tt.valid {
				t.Errorf("username %q: expected valid=%t, got err=%v", tt.value, tt.valid, err)
			}
		})
	}
}

func TestActionFlag(t *testing.T) {
	v := newValidate()
	for flag, valid := range map[int]bool{0: false, 1: true, 2: true, 3: true, 4: false} {
		err := v.Var(flag, "action_flag")
		if (err == nil) != valid {
			t.Errorf("action_flag %d: expected valid=%t, got err=%v", flag, valid, err)
		}
	}
}
