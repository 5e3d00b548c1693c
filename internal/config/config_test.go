package config

import "testing"

func validConfig() *Config {
	return &Config{
		Token:            "token",
		GuildID:          "100",
		IntakeChannelID:  "200",
		LogChannelID:     "300",
		RatingsChannelID: "400",
		StaffRoleIDs:     []string{"1", "2"},
		CategoryRoles: map[string][]string{
			"BILLING": {"1"},
			"GENERAL": nil,
		},
		DBPath:         "modmail.db",
		TranscriptsDir: "transcripts",
		CommandPrefix:  "!",
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidate_MissingToken(t *testing.T) {
	cfg := validConfig()
	cfg.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing token")
	}
}

func TestValidate_MalformedChannelID(t *testing.T) {
	cfg := validConfig()
	cfg.LogChannelID = "not-a-number"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for malformed channel ID")
	}
}

func TestValidate_NoStaffRoles(t *testing.T) {
	cfg := validConfig()
	cfg.StaffRoleIDs = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty staff role list")
	}
}

func TestValidate_NoCategories(t *testing.T) {
	cfg := validConfig()
	cfg.CategoryRoles = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty category map")
	}
}

func TestParseCategories(t *testing.T) {
	environ := []string{
		"CATEGORY_BILLING=1, 2",
		"CATEGORY_GENERAL=",
		"PATH=/usr/bin",
		"CATEGORY_=9",
	}

	categories := parseCategories(environ)

	if len(categories) != 2 {
		t.Fatalf("expected 2 categories, got %d: %v", len(categories), categories)
	}
	billing := categories["BILLING"]
	if len(billing) != 2 || billing[0] != "1" || billing[1] != "2" {
		t.Errorf("expected BILLING roles [1 2], got %v", billing)
	}
	if roles, ok := categories["GENERAL"]; !ok || len(roles) != 0 {
		t.Errorf("expected GENERAL with no roles, got %v (present=%v)", roles, ok)
	}
}

func TestCategoryNames_Sorted(t *testing.T) {
	names := validConfig().CategoryNames()
	if len(names) != 2 || names[0] != "BILLING" || names[1] != "GENERAL" {
		t.Errorf("expected sorted [BILLING GENERAL], got %v", names)
	}
}

func TestNotifyRoles(t *testing.T) {
	cfg := validConfig()
	cfg.CategoryRoles["VIP"] = []string{"2", "99"}    // 99 is not a staff role
	cfg.CategoryRoles["GHOST"] = []string{"98", "99"} // no staff overlap

	tests := []struct {
		category string
		want     []string
	}{
		{"BILLING", []string{"1"}},
		{"GENERAL", []string{"1", "2"}}, // unrestricted: all staff
		{"VIP", []string{"2"}},          // filtered to staff roles
		{"UNKNOWN", []string{"1", "2"}}, // unmapped: all staff
		{"GHOST", nil},                  // allow-list excludes all staff: no ping
	}

	for _, tt := range tests {
		got := cfg.NotifyRoles(tt.category)
		if len(got) != len(tt.want) {
			t.Errorf("NotifyRoles(%s) = %v, want %v", tt.category, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("NotifyRoles(%s) = %v, want %v", tt.category, got, tt.want)
				break
			}
		}
	}
}

func TestIsStaff(t *testing.T) {
	cfg := validConfig()
	if !cfg.IsStaff([]string{"7", "2"}) {
		t.Error("expected member holding role 2 to be staff")
	}
	if cfg.IsStaff([]string{"7", "8"}) {
		t.Error("expected member without staff roles to not be staff")
	}
	if cfg.IsStaff(nil) {
		t.Error("expected member with no roles to not be staff")
	}
}
