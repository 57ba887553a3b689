package tags

import "testing"

func TestLookup(t *testing.T) {
	t.Parallel()
	m := FromPairs([]Pair{
		{Key: "AutoSchedule", Value: "business-hours"},
		{Key: "Team", Value: "platform"},
	})
	if v, ok := m.Lookup("AutoSchedule"); !ok || v != "business-hours" {
		t.Fatalf("Lookup = %q,%v, want business-hours,true", v, ok)
	}
	if _, ok := m.Lookup("Missing"); ok {
		t.Fatal("Lookup should miss on absent key")
	}
	if _, ok := (Map{}).Lookup("anything"); ok {
		t.Fatal("zero Map should miss")
	}
}

func TestProtectionExempt(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		tags map[string]string
		want bool
	}{
		{name: "lowercase true", tags: map[string]string{"DoNotShutdown": "true"}, want: true},
		{name: "uppercase true", tags: map[string]string{"DoNotShutdown": "TRUE"}, want: true},
		{name: "mixed case", tags: map[string]string{"DoNotShutdown": "True"}, want: true},
		{name: "false", tags: map[string]string{"DoNotShutdown": "false"}, want: false},
		{name: "other value", tags: map[string]string{"DoNotShutdown": "yes"}, want: false},
		{name: "absent", tags: map[string]string{}, want: false},
	}
	var p Protection
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Exempt(FromMap(tt.tags)); got != tt.want {
				t.Fatalf("Exempt = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProtectionCustomKey(t *testing.T) {
	t.Parallel()
	p := Protection{Key: "KeepAlive"}
	m := FromMap(map[string]string{"KeepAlive": "true", "DoNotShutdown": "false"})
	if !p.Exempt(m) {
		t.Fatal("custom key should protect")
	}
	if (Protection{}).Exempt(FromMap(map[string]string{"KeepAlive": "true"})) {
		t.Fatal("default key should ignore custom tag")
	}
}
