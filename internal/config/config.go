// Package config loads the bot configuration from the environment.
// A .env file next to the working directory is honored when present.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// CategoryPrefix marks environment entries that define ticket categories.
// CATEGORY_BILLING=123,456 maps the "BILLING" category to those role IDs.
const CategoryPrefix = "CATEGORY_"

// Config holds everything the process reads at startup. It is never re-read.
type Config struct {
	Token            string
	GuildID          string
	IntakeChannelID  string
	LogChannelID     string
	RatingsChannelID string

	StaffRoleIDs  []string
	CategoryRoles map[string][]string

	DBPath         string
	TranscriptsDir string
	CommandPrefix  string
}

// Load reads the configuration from the environment, honoring a local .env.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Token:            os.Getenv("DISCORD_TOKEN"),
		GuildID:          os.Getenv("GUILD_ID"),
		IntakeChannelID:  os.Getenv("MODMAIL_CHANNEL_ID"),
		LogChannelID:     os.Getenv("LOG_CHANNEL_ID"),
		RatingsChannelID: os.Getenv("RATINGS_CHANNEL_ID"),
		StaffRoleIDs:     splitIDs(os.Getenv("STAFF_ROLE_IDS")),
		CategoryRoles:    parseCategories(os.Environ()),
		DBPath:           getEnv("MODMAIL_DB_PATH", "modmail.db"),
		TranscriptsDir:   getEnv("MODMAIL_TRANSCRIPTS_DIR", "transcripts"),
		CommandPrefix:    getEnv("COMMAND_PREFIX", "!"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first malformed or missing required value.
// Any error here is fatal at startup.
func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("config: DISCORD_TOKEN is required")
	}
	for name, id := range map[string]string{
		"GUILD_ID":           c.GuildID,
		"MODMAIL_CHANNEL_ID": c.IntakeChannelID,
		"LOG_CHANNEL_ID":     c.LogChannelID,
		"RATINGS_CHANNEL_ID": c.RatingsChannelID,
	} {
		if id == "" {
			return fmt.Errorf("config: %s is required", name)
		}
		if !validSnowflake(id) {
			return fmt.Errorf("config: %s: %q is not a valid ID", name, id)
		}
	}
	if len(c.StaffRoleIDs) == 0 {
		return fmt.Errorf("config: STAFF_ROLE_IDS must list at least one role")
	}
	for _, id := range c.StaffRoleIDs {
		if !validSnowflake(id) {
			return fmt.Errorf("config: STAFF_ROLE_IDS: %q is not a valid ID", id)
		}
	}
	if len(c.CategoryRoles) == 0 {
		return fmt.Errorf("config: at least one %s<NAME> entry is required", CategoryPrefix)
	}
	for name, ids := range c.CategoryRoles {
		for _, id := range ids {
			if !validSnowflake(id) {
				return fmt.Errorf("config: %s%s: %q is not a valid ID", CategoryPrefix, name, id)
			}
		}
	}
	return nil
}

// CategoryNames returns the configured category names in stable order.
func (c *Config) CategoryNames() []string {
	names := make([]string, 0, len(c.CategoryRoles))
	for name := range c.CategoryRoles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasCategory reports whether name is a configured category.
func (c *Config) HasCategory(name string) bool {
	_, ok := c.CategoryRoles[name]
	return ok
}

// ClaimRoles returns the claim allow-list for a category. An empty result
// means any staff member may claim.
func (c *Config) ClaimRoles(category string) []string {
	return c.CategoryRoles[category]
}

// NotifyRoles returns the staff roles to ping for a new ticket in the given
// category: all staff roles when the category has no restriction, otherwise
// the category's allow-list restricted to configured staff roles. An
// allow-list with no staff overlap means nobody gets pinged.
func (c *Config) NotifyRoles(category string) []string {
	allowed := c.CategoryRoles[category]
	if len(allowed) == 0 {
		return c.StaffRoleIDs
	}
	staff := make(map[string]bool, len(c.StaffRoleIDs))
	for _, id := range c.StaffRoleIDs {
		staff[id] = true
	}
	var roles []string
	for _, id := range allowed {
		if staff[id] {
			roles = append(roles, id)
		}
	}
	return roles
}

// IsStaff reports whether any of the given role IDs is a configured staff role.
func (c *Config) IsStaff(roleIDs []string) bool {
	for _, id := range roleIDs {
		for _, staff := range c.StaffRoleIDs {
			if id == staff {
				return true
			}
		}
	}
	return false
}

func parseCategories(environ []string) map[string][]string {
	categories := make(map[string][]string)
	for _, entry := range environ {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasPrefix(key, CategoryPrefix) {
			continue
		}
		name := strings.TrimPrefix(key, CategoryPrefix)
		if name == "" {
			continue
		}
		categories[name] = splitIDs(value)
	}
	return categories
}

func splitIDs(s string) []string {
	var ids []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}

func validSnowflake(id string) bool {
	_, err := strconv.ParseUint(id, 10, 64)
	return err == nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
