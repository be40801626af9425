package frequency

import (
	"sort"
	"strings"
)

// Topic is a named subject recognized by any of its keyword substrings
type Topic struct {
	Name     string
	Keywords []string
}

// TopicCount is a topic with the number of texts that mention it
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// DefaultTopics is the subject dictionary used for prompt analysis
var DefaultTopics = []Topic{
	{Name: "art", Keywords: []string{"art", "painting", "drawing", "sketch", "canvas"}},
	{Name: "portrait", Keywords: []string{"portrait", "face", "selfie", "headshot"}},
	{Name: "landscape", Keywords: []string{"landscape", "mountain", "ocean", "forest", "sunset"}},
	{Name: "abstract", Keywords: []string{"abstract", "geometric", "surreal"}},
	{Name: "fantasy", Keywords: []string{"fantasy", "dragon", "magic", "wizard", "castle"}},
	{Name: "technology", Keywords: []string{"technology", "robot", "cyberpunk", "futuristic", "sci-fi"}},
	{Name: "music", Keywords: []string{"music", "song", "album", "melody"}},
	{Name: "business", Keywords: []string{"business", "marketing", "pricing", "strategy", "sales"}},
	{Name: "nft", Keywords: []string{"nft", "mint", "collection", "blockchain"}},
}

// TopicCredits credits each topic at most once per text when any of its
// keywords occurs as a case-insensitive substring. Results are sorted by
// descending credit, ties in dictionary order; topics never mentioned are
// omitted.
func TopicCredits(texts []string, topics []Topic) []TopicCount {
	credits := make([]int, len(topics))

	for _, text := range texts {
		lowered := strings.ToLower(text)
		for i, topic := range topics {
			for _, keyword := range topic.Keywords {
				if keyword != "" && strings.Contains(lowered, strings.ToLower(keyword)) {
					credits[i]++
					break
				}
			}
		}
	}

	result := make([]TopicCount, 0, len(topics))
	for i, topic := range topics {
		if credits[i] > 0 {
			result = append(result, TopicCount{Topic: topic.Name, Count: credits[i]})
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Count > result[j].Count
	})
	return result
}

// TopSubject returns the most credited topic, or the most frequent term
// when no topic matched. It returns "" when both are empty.
func TopSubject(topics []TopicCount, terms []TermCount) string {
	if len(topics) > 0 {
		return topics[0].Topic
	}
	if len(terms) > 0 {
		return terms[0].Term
	}
	return ""
}
