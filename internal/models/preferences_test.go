package models

import "testing"

func TestDefaultPreferencesValid(t *testing.T) {
	if err := DefaultPreferences().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestPreferencesValidate(t *testing.T) {
	cases := []struct {
		name string
		p    Preferences
		ok   bool
	}{
		{"dark", Preferences{Theme: ThemeDark, FontSize: 18}, true},
		{"min font", Preferences{Theme: ThemeLight, FontSize: MinFontSize}, true},
		{"max font", Preferences{Theme: ThemeLight, FontSize: MaxFontSize}, true},
		{"font too small", Preferences{Theme: ThemeLight, FontSize: 11}, false},
		{"font too large", Preferences{Theme: ThemeLight, FontSize: 25}, false},
		{"unknown theme", Preferences{Theme: "sepia", FontSize: 14}, false},
		{"empty theme", Preferences{FontSize: 14}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.p.Validate()
			if tc.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestGutterFontSize(t *testing.T) {
	if got := (Preferences{FontSize: 14}).GutterFontSize(); got != 12 {
		t.Errorf("gutter = %d, want 12", got)
	}
	if got := (Preferences{FontSize: 11}).GutterFontSize(); got != 10 {
		t.Errorf("gutter = %d, want 10", got)
	}
}

func TestPreferencesRepair(t *testing.T) {
	cases := []struct {
		name string
		in   Preferences
		want Preferences
	}{
		{"valid kept", Preferences{Theme: ThemeDark, FontSize: 18}, Preferences{Theme: ThemeDark, FontSize: 18}},
		{"bad size only", Preferences{Theme: ThemeDark, FontSize: 0}, Preferences{Theme: ThemeDark, FontSize: DefaultFontSize}},
		{"bad theme only", Preferences{Theme: "neon", FontSize: 20}, Preferences{Theme: ThemeLight, FontSize: 20}},
		{"both bad", Preferences{Theme: "neon", FontSize: 99}, DefaultPreferences()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.in.Repair(); got != tc.want {
				t.Errorf("Repair() = %+v, want %+v", got, tc.want)
			}
		})
	}
}
