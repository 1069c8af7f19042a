package carrier

import "testing"

func TestInferCountry(t *testing.T) {
	cases := []struct {
		number  string
		want    string
		wantErr bool
	}{
		{"+12125551234", "US", false},
		{"+919876543210", "IN", false},
		{"+441234567890", "", true},
		{"12125551234", "", true}, // missing leading +
		{"+1212", "", true},       // too short for US
	}
	for _, c := range cases {
		got, err := InferCountry(c.number)
		if c.wantErr {
			if err == nil {
				t.Errorf("InferCountry(%q): expected error, got %q", c.number, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("InferCountry(%q): unexpected error: %v", c.number, err)
			continue
		}
		if got != c.want {
			t.Errorf("InferCountry(%q) = %q, want %q", c.number, got, c.want)
		}
	}
}
