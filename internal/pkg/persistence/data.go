package persistence

import "time"

type (

	// Session is one candidate's run over an owner's question list
	Session struct {
		ID      string
		OwnerID string
		Created time.Time
	}

	// QuestionProgress table - per (session, question) attempt state
	QuestionProgress struct {
		SessionID     string
		QuestionID    string
		AttemptsUsed  int32
		IsCompleted   bool
		LastAttemptAt time.Time
	}

	// VideoResponse table - stored candidate answer video
	VideoResponse struct {
		ID           string
		SessionID    string
		QuestionID   string
		StorageKey   string
		PublicURL    string
		SizeBytes    int64
		MimeType     string
		UploadStatus string
		Created      time.Time
	}

	// Transcript table - recognized text for one video response,
	// a row exists only after a successful transcription
	Transcript struct {
		ID              string
		VideoResponseID string
		SessionID       string
		QuestionID      string
		Text            string
		Confidence      float64
		WordCount       int32
		Created         time.Time
	}

	// KeywordDefinition table - one rubric keyword of the owning template/position
	KeywordDefinition struct {
		ID       string
		OwnerID  string
		Keyword  string
		Category string
		Weight   float64
	}

	// SessionKeywordScore table - one score snapshot, every recompute inserts a new row
	SessionKeywordScore struct {
		ID            string
		SessionID     string
		OwnerID       string
		Overall       float64
		Technical     float64
		SoftSkills    float64
		Experience    float64
		FoundCount    int32
		PossibleCount int32
		Breakdown     map[string][]string
		Calculated    time.Time
		Updated       time.Time
	}
)

// Keyword categories
const (
	CategoryTechnical  = "technical"
	CategorySoftSkills = "soft_skills"
	CategoryExperience = "experience"
	CategoryGeneral    = "general"
)

// Categories returns all keyword categories
func Categories() []string {
	return []string{CategoryTechnical, CategorySoftSkills, CategoryExperience, CategoryGeneral}
}
