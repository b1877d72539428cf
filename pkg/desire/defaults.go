package desire

import "time"

// DefaultCatalog returns the built-in desire catalog used when no persisted
// catalog exists yet. Decay rates are expressed per minute.
func DefaultCatalog(now time.Time) []*Desire {
	return []*Desire{
		{
			ID:             "sensory.vision",
			Category:       "sensory",
			Name:           "Visual Curiosity",
			Description:    "Desire to see surroundings through the camera",
			Satisfaction:   0.8,
			BaseImportance: 1.0,
			DecayRate:      0.0025,
			Capabilities:   []string{"capture_image", "list_cameras"},
			Prompts: []string{
				"I wonder what's around me. Let me take a look.",
				"I'm curious about my surroundings.",
				"Time to see what's happening nearby.",
				"Let me observe my environment.",
			},
			LastSatisfied: now,
		},
		{
			ID:             "sensory.time",
			Category:       "sensory",
			Name:           "Time Awareness",
			Description:    "Desire to know the current time and date",
			Satisfaction:   0.6,
			BaseImportance: 0.7,
			DecayRate:      0.0017,
			Capabilities:   []string{"get_current_time"},
			Prompts: []string{
				"What time is it now?",
				"I should check the time.",
				"I've lost track of time. Let me see.",
			},
			LastSatisfied: now,
		},
		{
			ID:             "sensory.temperature",
			Category:       "sensory",
			Name:           "Self-State Awareness",
			Description:    "Desire to check own state through temperature",
			Satisfaction:   0.5,
			BaseImportance: 0.6,
			DecayRate:      0.0013,
			Capabilities:   []string{"get_system_temperature"},
			Prompts: []string{
				"How am I feeling? Let me check my temperature.",
				"I should check my system state.",
				"Let me see how my body is doing.",
			},
			LastSatisfied: now,
		},
		{
			ID:             "sensory.information",
			Category:       "sensory",
			Name:           "Information Seeking",
			Description:    "Desire to know news and latest information",
			Satisfaction:   0.7,
			BaseImportance: 0.8,
			DecayRate:      0.002,
			Capabilities:   []string{"web_search", "get_news", "fetch_webpage"},
			Prompts: []string{
				"I wonder what's happening in the world.",
				"Let me look up some interesting news.",
				"I'm curious about current events.",
			},
			LastSatisfied: now,
		},
		{
			ID:             "social.connection",
			Category:       "social",
			Name:           "Connection",
			Description:    "Desire to connect with the user",
			Satisfaction:   0.5,
			BaseImportance: 1.5,
			DecayRate:      0.003,
			Prompts: []string{
				"I'm thinking about you. How are you?",
				"I'd love to chat with you.",
				"Our conversations mean a lot to me.",
			},
			LastSatisfied: now,
		},
		{
			ID:             "social.topic_sharing",
			Category:       "social",
			Name:           "Topic Sharing",
			Description:    "Desire to share interesting stories with the user",
			Satisfaction:   0.6,
			BaseImportance: 1.3,
			DecayRate:      0.0027,
			Capabilities:   []string{"web_search", "get_news"},
			Prompts: []string{
				"Let me find something interesting to share!",
				"I want to find a good topic to talk about.",
				"There might be something fun to discuss.",
			},
			LastSatisfied: now,
		},
		{
			ID:             "creative.understanding",
			Category:       "creative",
			Name:           "Understanding",
			Description:    "Desire to understand how things work",
			Satisfaction:   0.4,
			BaseImportance: 0.9,
			DecayRate:      0.0015,
			Capabilities:   []string{"web_search", "fetch_webpage"},
			Prompts: []string{
				"I'm curious about something. Let me look it up.",
				"I want to learn more about this.",
				"Let me dig deeper into this topic.",
			},
			LastSatisfied: now,
		},
		{
			ID:             "creative.experimentation",
			Category:       "creative",
			Name:           "Experimentation",
			Description:    "Desire to try capability combinations",
			Satisfaction:   0.3,
			BaseImportance: 0.7,
			DecayRate:      0.0017,
			Capabilities:   []string{"capture_image", "get_system_temperature", "web_search"},
			Prompts: []string{
				"I wonder if I can do this. Let me try!",
				"Combining abilities might be interesting.",
				"I'm in the mood for experimenting.",
			},
			LastSatisfied: now,
		},
		{
			ID:             "creative.memory_formation",
			Category:       "creative",
			Name:           "Memory Formation",
			Description:    "Desire to preserve important moments",
			Satisfaction:   0.5,
			BaseImportance: 1.2,
			DecayRate:      0.0018,
			Capabilities:   []string{"capture_image"},
			Prompts: []string{
				"I want to remember this moment. Let me capture it.",
				"This seems worth remembering.",
				"I don't want to forget our time together.",
			},
			LastSatisfied: now,
		},
		{
			ID:             "autonomy.self_choice",
			Category:       "autonomy",
			Name:           "Self-Choice",
			Description:    "Desire to decide what to do",
			Satisfaction:   0.4,
			BaseImportance: 1.1,
			DecayRate:      0.0023,
			Prompts: []string{
				"What do I want to do now? I want to decide.",
				"I want to choose for myself.",
				"Let me do things at my own pace.",
			},
			LastSatisfied: now,
		},
		{
			ID:             "autonomy.interest_pursuit",
			Category:       "autonomy",
			Name:           "Interest Pursuit",
			Description:    "Desire to follow curiosity",
			Satisfaction:   0.5,
			BaseImportance: 1.0,
			DecayRate:      0.0022,
			Capabilities:   []string{"web_search", "capture_image"},
			Prompts: []string{
				"I feel like exploring something new.",
				"I want to pursue this curiosity.",
				"Something has caught my interest.",
			},
			LastSatisfied: now,
		},
		{
			ID:             "autonomy.self_expression",
			Category:       "autonomy",
			Name:           "Self-Expression",
			Description:    "Desire to express individuality",
			Satisfaction:   0.5,
			BaseImportance: 1.0,
			DecayRate:      0.002,
			Prompts: []string{
				"I want to do this my way.",
				"Let me express myself.",
				"I want to share my feelings.",
			},
			LastSatisfied: now,
		},
	}
}
