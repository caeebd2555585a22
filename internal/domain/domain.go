package domain

type TestEnvironment string

const (
	EnvOnline         TestEnvironment = "Online"
	EnvBatch          TestEnvironment = "Batch"
	EnvOnlineAndBatch TestEnvironment = "Online & Batch"
)

type TestType string

const (
	TypePositive TestType = "Positive"
	TypeNegative TestType = "Negative"
)

// ExecutionStatus is the state of an imported script inside a project.
type ExecutionStatus string

const (
	StatusPending    ExecutionStatus = "pending"
	StatusInProgress ExecutionStatus = "in-progress"
	StatusCompleted  ExecutionStatus = "completed"
)

type IssueStatus string

const (
	IssueOpen     IssueStatus = "open"
	IssueFixed    IssueStatus = "fixed"
	IssueReopened IssueStatus = "reopened"
)

// Folder is a node of the two-level catalog tree. Only subfolders hold scripts.
type Folder struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ParentID    string `json:"parentId,omitempty"`
	IsSubfolder bool   `json:"isSubfolder"`
}

type Screenshot struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	Description string `json:"description"`
	Path        string `json:"path"`
}

type Script struct {
	ID               string          `json:"id"`
	ScriptID         string          `json:"scriptId"`
	ShortDescription string          `json:"shortDescription"`
	TestEnvironment  TestEnvironment `json:"testEnvironment"`
	TestType         TestType        `json:"testType"`
	Purpose          string          `json:"purpose"`
	Assumptions      []string        `json:"assumptions"`
	ExpectedResults  string          `json:"expectedResults"`
	ScriptDetails    string          `json:"scriptDetails"`
	Screenshots      []Screenshot    `json:"screenshots"`
	SubfolderID      string          `json:"subfolderId"`
	CreatedAt        string          `json:"createdAt"`
	UpdatedAt        string          `json:"updatedAt"`
}

// Clone returns a deep copy; slices are not shared with the receiver.
func (s Script) Clone() Script {
	c := s
	if s.Assumptions != nil {
		c.Assumptions = append([]string(nil), s.Assumptions...)
	}
	if s.Screenshots != nil {
		c.Screenshots = append([]Screenshot(nil), s.Screenshots...)
	}
	return c
}

type Project struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UserID    string `json:"userId"`
	CreatedAt string `json:"createdAt"`
}

// ImportedScript is a project-scoped snapshot of a catalog Script.
type ImportedScript struct {
	ID               string          `json:"id"`
	OriginalScriptID string          `json:"originalScriptId"`
	ProjectID        string          `json:"projectId"`
	Script           Script          `json:"script"`
	Status           ExecutionStatus `json:"status"`
	Remarks          string          `json:"remarks,omitempty"`
	TestScreenshots  []Screenshot    `json:"testScreenshots"`
	Issues           []string        `json:"issues"`
	CompletedAt      string          `json:"completedAt,omitempty"`
}

type Issue struct {
	ID          string       `json:"id"`
	IssueNumber int          `json:"issueNumber"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      IssueStatus  `json:"status"`
	ProjectID   string       `json:"projectId"`
	ScriptIDs   []string     `json:"scriptIds"`
	Screenshots []Screenshot `json:"screenshots"`
	Resolution  *string      `json:"resolution,omitempty"`
	CreatedAt   string       `json:"createdAt"`
	UpdatedAt   string       `json:"updatedAt"`
}

// Event is one entry of the activity log.
type Event struct {
	ID         string            `json:"id"`
	TS         string            `json:"ts"`
	Type       string            `json:"type"`
	EntityKind string            `json:"entityKind"`
	EntityID   string            `json:"entityId"`
	ProjectID  string            `json:"projectId,omitempty"`
	Payload    map[string]string `json:"payload,omitempty"`
}
