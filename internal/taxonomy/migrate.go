package taxonomy

// Migrate converts a deprecated flat category key to its full taxonomy path.
// Keys outside the migration table are returned unchanged, which makes the
// function total and idempotent: migrating an already-migrated path is a
// no-op because full paths never collide with legacy keys.
func (r *Registry) Migrate(legacyKey string) string {
	if path, ok := r.legacy[legacyKey]; ok {
		return path
	}
	return legacyKey
}

// IsLegacyKey reports whether the key appears in the migration table.
func (r *Registry) IsLegacyKey(key string) bool {
	_, ok := r.legacy[key]
	return ok
}

// legacyTable maps the flat category keys used before the three-level scheme
// to their full paths. The table is closed; new categories must be written
// as full paths from the start.
func legacyTable() map[string]string {
	return map[string]string{
		"skill":       "achievements.competencies.professional_skills",
		"award":       "achievements.milestones.awards",
		"work":        "achievements.works.projects",
		"role":        "self.identity.social_roles",
		"personality": "self.personality.traits",
		"hobby":       "self.preferences.hobbies",
		"taste":       "self.preferences.tastes",
		"possession":  "material.possessions.items",
		"finance":     "material.finances.assets",
		"home":        "material.environment.living_space",
		"event":       "experiences.events.life_events",
		"trip":        "experiences.places.travel",
		"memory":      "experiences.periods.memories",
		"value":       "spirit.ideology.values",
		"belief":      "spirit.ideology.beliefs",
		"goal":        "spirit.aspirations.goals",
	}
}
