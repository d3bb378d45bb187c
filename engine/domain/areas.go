package domain

import "strings"

// ResearchKeywords is the controlled vocabulary matched against page content
// when tagging a lab. Order matters: tags are reported in first-match order.
var ResearchKeywords = []string{
	"autonomous systems", "computer vision", "machine learning", "artificial intelligence",
	"human-robot interaction", "control systems", "perception", "manipulation",
	"mobile robotics", "autonomous vehicles", "drones", "medical robotics",
	"surgical robotics", "humanoid robots", "robot learning", "slam",
	"path planning", "motion planning", "sensor fusion", "localization",
	"robot perception", "robotic manipulation", "swarm robotics", "bio-inspired robotics",
	"natural language processing", "reinforcement learning", "deep learning",
	"quantum computing", "computational biology", "bioinformatics",
	"human-computer interaction", "computer graphics", "systems biology",
	"wireless networks", "distributed systems", "computer security",
}

// NormalizeAreas case-normalizes tags, removes duplicates and empties, and
// caps the list at MaxResearchAreas while preserving order.
func NormalizeAreas(areas []string) []string {
	seen := make(map[string]struct{}, len(areas))
	out := make([]string, 0, len(areas))
	for _, a := range areas {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			continue
		}
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
		if len(out) == MaxResearchAreas {
			break
		}
	}
	return out
}

// TagResearchAreas extracts research-area tags from page content by
// case-folded keyword matching against the controlled vocabulary.
func TagResearchAreas(content string) []string {
	lower := strings.ToLower(content)
	var found []string
	for _, kw := range ResearchKeywords {
		if strings.Contains(lower, kw) {
			found = append(found, kw)
			if len(found) == MaxResearchAreas {
				break
			}
		}
	}
	return found
}
