package model

import "time"

// AIModel selects the text provider that writes an NPC's posts and comments.
type AIModel string

const (
	AIModelOpenAI AIModel = "openai"
	AIModelClaude AIModel = "claude"
	AIModelXAI    AIModel = "xai"
)

// PostType is the category a social post is published under.
type PostType string

const (
	PostTypeWin     PostType = "win"
	PostTypeDream   PostType = "dream"
	PostTypeAsk     PostType = "ask"
	PostTypeHangout PostType = "hangout"
	PostTypeIntro   PostType = "intro"
	PostTypeGeneral PostType = "general"
)

// AllPostTypes lists every post type the platform accepts.
var AllPostTypes = []PostType{PostTypeWin, PostTypeDream, PostTypeAsk, PostTypeHangout, PostTypeIntro, PostTypeGeneral}

type Tone string

const (
	ToneFriendly     Tone = "friendly"
	ToneProfessional Tone = "professional"
	ToneCasual       Tone = "casual"
	ToneInspiring    Tone = "inspiring"
	ToneHumorous     Tone = "humorous"
)

type EngagementStyle string

const (
	StyleSupportive   EngagementStyle = "supportive"
	StyleCurious      EngagementStyle = "curious"
	StyleEnthusiastic EngagementStyle = "enthusiastic"
	StyleThoughtful   EngagementStyle = "thoughtful"
)

type ImageFrequency string

const (
	ImageAlways    ImageFrequency = "always"
	ImageSometimes ImageFrequency = "sometimes"
	ImageRarely    ImageFrequency = "rarely"
)

type ImageStyle string

const (
	ImageStylePhoto        ImageStyle = "photo"
	ImageStyleIllustration ImageStyle = "illustration"
	ImageStyleMixed        ImageStyle = "mixed"
)

// ScheduleMode picks how PostingTimes spreads posts over time.
type ScheduleMode string

const (
	ModePostsPerDay      ScheduleMode = "posts_per_day"
	ModePostsPerWeek     ScheduleMode = "posts_per_week"
	ModeVariableInterval ScheduleMode = "variable_interval"
)

// ActiveHours is the daily window posts may land in. StartHour > EndHour wraps past midnight.
type ActiveHours struct {
	StartHour int `json:"start_hour"`
	EndHour   int `json:"end_hour"`
}

// PostingTimes is the declarative posting schedule of an NPC.
type PostingTimes struct {
	Mode             ScheduleMode `json:"mode"`
	PostsPerDay      int          `json:"posts_per_day,omitempty"`
	PostsPerWeek     int          `json:"posts_per_week,omitempty"`
	MinIntervalHours int          `json:"min_interval_hours,omitempty"`
	MaxIntervalHours int          `json:"max_interval_hours,omitempty"`
	ActiveHours      ActiveHours  `json:"active_hours"`
	RandomizeMinutes bool         `json:"randomize_minutes"`
	Timezone         string       `json:"timezone,omitempty"`
}

// EngagementSettings drives the autonomous like/comment behavior.
type EngagementSettings struct {
	AutoLike        bool            `json:"auto_like"`
	AutoComment     bool            `json:"auto_comment"`
	LikesPerDay     int             `json:"likes_per_day"`
	CommentsPerDay  int             `json:"comments_per_day"`
	CommentOnTypes  []PostType      `json:"comment_on_types"`
	EngagementStyle EngagementStyle `json:"engagement_style"`
}

// VisualPersona keeps generated images of one character consistent.
type VisualPersona struct {
	Gender          string   `json:"gender,omitempty"`
	AgeRange        string   `json:"age_range,omitempty"`
	Ethnicity       string   `json:"ethnicity,omitempty"`
	HairStyle       string   `json:"hair_style,omitempty"`
	HairColor       string   `json:"hair_color,omitempty"`
	EyeColor        string   `json:"eye_color,omitempty"`
	BodyType        string   `json:"body_type,omitempty"`
	StyleOfDress    string   `json:"style_of_dress,omitempty"`
	DistinctFeature string   `json:"distinct_features,omitempty"`
	Environments    []string `json:"typical_environments,omitempty"`
	PhotoStyle      string   `json:"photography_style,omitempty"`
}

// NPCProfile is the configuration and lifetime counters of one automated account.
type NPCProfile struct {
	ID                 string `json:"id"`
	UserID             string `json:"user_id"`
	Username           string `json:"username,omitempty"`
	AvatarURL          string `json:"avatar_url,omitempty"`
	PersonaName        string `json:"persona_name"`
	PersonaDescription string `json:"persona_description"`
	PersonaPrompt      string `json:"persona_prompt,omitempty"`

	AIModel     AIModel    `json:"ai_model"`
	Temperature float64    `json:"temperature"`
	Tone        Tone       `json:"tone"`
	Topics      []string   `json:"topics"`
	PostTypes   []PostType `json:"post_types"`

	PostingTimes       *PostingTimes      `json:"posting_times,omitempty"`
	EngagementSettings EngagementSettings `json:"engagement_settings"`

	GenerateImages      bool           `json:"generate_images"`
	ImageFrequency      ImageFrequency `json:"image_frequency"`
	PreferredImageStyle ImageStyle     `json:"preferred_image_style"`
	VisualPersona       *VisualPersona `json:"visual_persona,omitempty"`
	ReferenceImageURL   string         `json:"reference_image_url,omitempty"`

	TotalPostsGenerated int        `json:"total_posts_generated"`
	TotalLikesGiven     int        `json:"total_likes_given"`
	TotalCommentsGiven  int        `json:"total_comments_given"`
	LastActivityAt      *time.Time `json:"last_activity_at,omitempty"`
	IsActive            bool       `json:"is_active"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// QueueStatus is the lifecycle state of a ScheduledPost.
type QueueStatus string

const (
	QueuePending   QueueStatus = "pending"
	QueuePublished QueueStatus = "published"
	QueueFailed    QueueStatus = "failed"
	QueueCancelled QueueStatus = "cancelled"
)

// ScheduledPost is one unit of generated content waiting in the queue.
type ScheduledPost struct {
	ID               string      `json:"id"`
	NPCID            string      `json:"npc_id"`
	Content          string      `json:"content"`
	PostType         PostType    `json:"post_type"`
	ScheduledFor     time.Time   `json:"scheduled_for"`
	GenerationPrompt string      `json:"generation_prompt"`
	AIModelUsed      AIModel     `json:"ai_model_used"`
	ImageURL         string      `json:"image_url,omitempty"`
	ImagePrompt      string      `json:"image_prompt,omitempty"`
	Status           QueueStatus `json:"status"`
	ErrorMessage     string      `json:"error_message,omitempty"`
	PublishedPostID  string      `json:"published_post_id,omitempty"`
	PublishedAt      *time.Time  `json:"published_at,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}

// QueueFilter narrows GetQueueItems. Zero values mean no filter.
type QueueFilter struct {
	NPCID  string
	Status QueueStatus
	Limit  int
}

type ActionType string

const (
	ActionLike    ActionType = "like"
	ActionComment ActionType = "comment"
)

type ActionStatus string

const (
	ActionCompleted ActionStatus = "completed"
	ActionFailed    ActionStatus = "failed"
)

// EngagementLogEntry is the immutable audit row of one autonomous action.
type EngagementLogEntry struct {
	ID               string       `json:"id"`
	NPCID            string       `json:"npc_id"`
	ActionType       ActionType   `json:"action_type"`
	TargetPostID     string       `json:"target_post_id"`
	CommentContent   string       `json:"comment_content,omitempty"`
	CreatedCommentID string       `json:"created_comment_id,omitempty"`
	Status           ActionStatus `json:"status"`
	ErrorMessage     string       `json:"error_message,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
}

// EngagementTarget is a candidate post for engagement. Not persisted.
type EngagementTarget struct {
	PostID         string
	PostContent    string
	PostType       PostType
	AuthorUsername string
	AuthorID       string
}

// TargetQuery selects recent candidate posts, newest first.
type TargetQuery struct {
	ExcludeUserID string
	PostTypes     []PostType
	Limit         int
}

// Stat names a lifetime counter column on an NPC profile.
type Stat string

const (
	StatPostsGenerated Stat = "total_posts_generated"
	StatLikesGiven     Stat = "total_likes_given"
	StatCommentsGiven  Stat = "total_comments_given"
)

// Post is a live row of the social graph.
type Post struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	PostType  PostType  `json:"post_type"`
	ImageURL  string    `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
