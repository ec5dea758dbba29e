package utils

import "strings"

// StripID removes mention decoration from a Discord ID. Users paste role
// and channel references in forms like <@123>, <@!123>, <@&123> and
// <#123>; the API wants the bare snowflake.
func StripID(raw string) string {
	id := strings.TrimSpace(raw)
	id = strings.TrimPrefix(id, "<")
	id = strings.TrimSuffix(id, ">")
	id = strings.TrimPrefix(id, "@")
	id = strings.TrimPrefix(id, "!")
	id = strings.TrimPrefix(id, "&")
	id = strings.TrimPrefix(id, "#")
	return id
}

// IsSnowflake reports whether s looks like a Discord snowflake ID.
func IsSnowflake(s string) bool {
	if len(s) < 15 || len(s) > 21 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
