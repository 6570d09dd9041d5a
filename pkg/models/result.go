package models

// FilteringStatistics aggregates one filtering batch
type FilteringStatistics struct {
	TotalSegments       int                `json:"total_segments"`
	LearningSegments    int                `json:"learning_segments"`
	EmptySegments       int                `json:"empty_segments"`
	TotalWords          int                `json:"total_words"`
	ActiveWords         int                `json:"active_words"`
	FilteredWords       int                `json:"filtered_words"`
	FilterRate          float64            `json:"filter_rate"`
	LearningSegmentRate float64            `json:"learning_segment_rate"`
	StatusCounts        map[WordStatus]int `json:"status_counts"`
}

// FilteringResult is the output of one filtering request
type FilteringResult struct {
	BatchID          string              `json:"batch_id"`
	Language         string              `json:"language"`
	UserLevel        DifficultyLevel     `json:"user_level"`
	LearningSegments []TextSegment       `json:"learning_segments"`
	EmptySegments    []TextSegment       `json:"empty_segments"`
	BlockingWords    []WordOccurrence    `json:"blocking_words"`
	Statistics       FilteringStatistics `json:"statistics"`
}
