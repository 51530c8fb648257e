// Package domain defines the core data model of the AI-Ready Dataset
// pipeline — workspaces, products, versions, raw files, processed chunks,
// fingerprints, policies, and the access-control list grammar that guards
// vector search. It is the validation gate at every stage boundary.
package domain

import "time"

// ChunkingMode selects how a product's chunking config was produced.
type ChunkingMode string

const (
	ChunkingModeAuto   ChunkingMode = "auto"
	ChunkingModeManual ChunkingMode = "manual"
)

// OptimizationMode selects the strategy the content analyzer used to
// resolve a chunking config.
type OptimizationMode string

const (
	OptimizationPattern OptimizationMode = "pattern"
	OptimizationHybrid  OptimizationMode = "hybrid"
	OptimizationLLM     OptimizationMode = "llm"
)

// ChunkingStrategy is the boundary rule used when splitting normalized text.
type ChunkingStrategy string

const (
	StrategyFixedSize         ChunkingStrategy = "fixed_size"
	StrategyRecursive         ChunkingStrategy = "recursive"
	StrategySentenceBoundary  ChunkingStrategy = "sentence_boundary"
	StrategyParagraphBoundary ChunkingStrategy = "paragraph_boundary"
	StrategySemantic          ChunkingStrategy = "semantic"
)

// ChunkingConfig is the resolved (not proposed) chunking configuration a
// product preprocesses with. Sizes and overlap are in estimated tokens.
type ChunkingConfig struct {
	Mode            ChunkingMode     `json:"mode"`
	Optimization    OptimizationMode `json:"optimization_mode"`
	MaxTokens       int              `json:"max_tokens"`
	Overlap         int              `json:"overlap"`
	MinTokens       int              `json:"min_tokens"`
	MaxTokensHard   int              `json:"max_tokens_hard"`
	Strategy        ChunkingStrategy `json:"strategy"`
	PreprocessFlags PreprocessFlags  `json:"preprocessing_flags"`
}

// PreprocessFlags are boolean knobs the preprocess stage consults.
type PreprocessFlags struct {
	EnhancedNormalization bool `json:"enhanced_normalization"`
	Deduplication         bool `json:"deduplication"`
}

// EmbeddingConfig names the model a product embeds with and the dimension
// that model is expected to produce.
type EmbeddingConfig struct {
	ModelName string `json:"model_name"`
	Dimension int    `json:"dimension"`
}

// Workspace is the top-level tenant boundary. Workspace CRUD itself is out
// of scope; this struct is the shape the core reads from the catalog.
type Workspace struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Product belongs to exactly one workspace and owns a monotonically
// increasing version sequence.
type Product struct {
	ID               string          `json:"id"`
	WorkspaceID      string          `json:"workspace_id"`
	Name             string          `json:"name"`
	CurrentVersion   int             `json:"current_version"`
	PromotedVersion  int             `json:"promoted_version,omitempty"`
	PlaybookID       string          `json:"playbook_id"`
	Chunking         ChunkingConfig  `json:"chunking_config"`
	Embedding        EmbeddingConfig `json:"embedding_config"`
	ReadinessFP      *Fingerprint    `json:"readiness_fingerprint,omitempty"`
	PolicyStatus     PolicyStatus    `json:"policy_status,omitempty"`
	PolicyViolations []string        `json:"policy_violations,omitempty"`
}

// RawFileStatus is the RawFile state machine.
type RawFileStatus string

const (
	RawFileIngested   RawFileStatus = "ingested"
	RawFileProcessing RawFileStatus = "processing"
	RawFileProcessed  RawFileStatus = "processed"
	RawFileFailed     RawFileStatus = "failed"
	RawFileDeleted    RawFileStatus = "deleted"
)

// RawFile is the metadata catalog row for one ingested byte object.
// Uniqueness: (ProductID, Version, FileStem). Never deleted on reprocess —
// reprocessing bumps Version instead.
type RawFile struct {
	Filename      string        `json:"filename"`
	FileStem      string        `json:"file_stem"`
	Bucket        string        `json:"bucket"`
	Key           string        `json:"key"`
	Size          int64         `json:"size"`
	Checksum      string        `json:"checksum"`
	ContentType   string        `json:"content_type"`
	Status        RawFileStatus `json:"status"`
	ProductID     string        `json:"product_id"`
	Version       int           `json:"version"`
	DataSourceRef string        `json:"data_source_ref,omitempty"`
}

// ProcessedChunkRecord is one line of processed JSONL output by the
// preprocess stage. ChunkID is unique within (ProductID, Version).
type ProcessedChunkRecord struct {
	ChunkID    string   `json:"chunk_id"`
	Text       string   `json:"text"`
	Section    string   `json:"section"`
	FieldName  string   `json:"field_name,omitempty"`
	Page       int      `json:"page,omitempty"`
	DocumentID string   `json:"document_id"`
	TokenEst   int      `json:"token_est"`
	Tags       []string `json:"tags,omitempty"`
	Source     string   `json:"source,omitempty"`
	Audience   string   `json:"audience,omitempty"`
	Timestamp  string   `json:"timestamp,omitempty"`
}

// PerChunkMetricRecord is one entry of metrics.json.
type PerChunkMetricRecord struct {
	File             string  `json:"file"`
	ChunkID          string  `json:"chunk_id"`
	Section          string  `json:"section"`
	AITrustScore     float64 `json:"AI_Trust_Score"`
	Completeness     float64 `json:"Completeness"`
	Quality          float64 `json:"Quality"`
	Secure           float64 `json:"Secure"`
	MetadataPresence float64 `json:"Metadata_Presence"`
	KBReady          float64 `json:"KnowledgeBase_Ready"`
	TokenEst         int     `json:"token_est,omitempty"`
}

// Fingerprint is the aggregated, multi-dimensional readiness assessment of
// a (product, version).
type Fingerprint struct {
	AITrustScore     float64 `json:"AI_Trust_Score"`
	Completeness     float64 `json:"Completeness"`
	Quality          float64 `json:"Quality"`
	Secure           float64 `json:"Secure"`
	MetadataPresence float64 `json:"Metadata_Presence"`
	KBReady          float64 `json:"KnowledgeBase_Ready"`

	ChunkBoundaryQuality float64 `json:"Chunk_Boundary_Quality,omitempty"`

	EmbeddingDimensionConsistency float64 `json:"Embedding_Dimension_Consistency"`
	EmbeddingSuccessRate          float64 `json:"Embedding_Success_Rate"`
	VectorQualityScore            float64 `json:"Vector_Quality_Score"`
	EmbeddingModelHealth          float64 `json:"Embedding_Model_Health"`
	SemanticSearchReadiness       float64 `json:"Semantic_Search_Readiness"`
	RetrievalRecallAtK            float64 `json:"Retrieval_Recall_At_K"`
	AveragePrecisionAtK           float64 `json:"Average_Precision_At_K"`
}

// IsEmpty reports whether no dimension of the fingerprint was ever set.
func (f Fingerprint) IsEmpty() bool {
	return f == Fingerprint{}
}

// PolicyStatus is the outcome of evaluating a fingerprint against policy
// thresholds.
type PolicyStatus string

const (
	PolicyPassed   PolicyStatus = "passed"
	PolicyFailed   PolicyStatus = "failed"
	PolicyWarnings PolicyStatus = "warnings"
)

// PolicyEvaluationResult is persisted onto the product row after the
// policy stage runs.
type PolicyEvaluationResult struct {
	Status       PolicyStatus     `json:"status"`
	PolicyPassed bool             `json:"policy_passed"`
	Violations   []string         `json:"violations"`
	Warnings     []string         `json:"warnings"`
	Thresholds   PolicyThresholds `json:"thresholds_used"`
}

// PolicyThresholds are the default policy gates.
type PolicyThresholds struct {
	MinTrustScore       float64 `json:"min_trust_score"`
	MinSecure           float64 `json:"min_secure"`
	MinMetadataPresence float64 `json:"min_metadata_presence"`
	MinKBReady          float64 `json:"min_kb_ready"`
}

// DefaultPolicyThresholds returns the built-in policy gates.
func DefaultPolicyThresholds() PolicyThresholds {
	return PolicyThresholds{
		MinTrustScore:       50.0,
		MinSecure:           90.0,
		MinMetadataPresence: 80.0,
		MinKBReady:          50.0,
	}
}

// RunStatus is the PipelineRun state machine.
type RunStatus string

const (
	RunQueued            RunStatus = "queued"
	RunRunning           RunStatus = "running"
	RunSucceeded         RunStatus = "succeeded"
	RunFailed            RunStatus = "failed"
	RunReadyWithWarnings RunStatus = "ready_with_warnings"
	RunFailedPolicy      RunStatus = "failed_policy"
)

// PipelineRun is one execution of the stage pipeline for a (product, version).
type PipelineRun struct {
	ID                  string         `json:"id"`
	WorkspaceID         string         `json:"workspace_id"`
	ProductID           string         `json:"product_id"`
	Version             int            `json:"version"`
	Status              RunStatus      `json:"status"`
	StartedAt           time.Time      `json:"started_at"`
	FinishedAt          time.Time      `json:"finished_at,omitempty"`
	DAGID               string         `json:"dag_id,omitempty"`
	Metrics             map[string]any `json:"metrics"`
	AIRDStagesCompleted []string       `json:"aird_stages_completed"`
	CancellationReason  string         `json:"cancellation_reason,omitempty"`
}

// ArtifactType enumerates the kinds of objects the registry catalogs.
type ArtifactType string

const (
	ArtifactJSONL  ArtifactType = "jsonl"
	ArtifactJSON   ArtifactType = "json"
	ArtifactCSV    ArtifactType = "csv"
	ArtifactPDF    ArtifactType = "pdf"
	ArtifactVector ArtifactType = "vector"
	ArtifactText   ArtifactType = "text"
	ArtifactBinary ArtifactType = "binary"
)

// ArtifactStatus is the PipelineArtifact state machine.
type ArtifactStatus string

const (
	ArtifactActive   ArtifactStatus = "active"
	ArtifactArchived ArtifactStatus = "archived"
	ArtifactDeleted  ArtifactStatus = "deleted"
	ArtifactPurged   ArtifactStatus = "purged"
)

// Retention is the named retention policy applied to an artifact.
type Retention string

const (
	RetentionKeepForever     Retention = "keep_forever"
	Retention30d             Retention = "30d"
	Retention90d             Retention = "90d"
	Retention365d            Retention = "365d"
	RetentionDeleteOnPromote Retention = "delete_on_promote"
	RetentionOnFailureKeep90 Retention = "on_failure_keep_90"
)

// ArtifactRef names one upstream artifact a derived artifact was built from.
type ArtifactRef struct {
	ArtifactID string `json:"artifact_id"`
	Stage      string `json:"stage"`
	Name       string `json:"name"`
}

// PipelineArtifact is one catalog row per stage output.
type PipelineArtifact struct {
	ID             string         `json:"id"`
	RunID          string         `json:"run_id"`
	WorkspaceID    string         `json:"workspace_id"`
	ProductID      string         `json:"product_id"`
	Version        int            `json:"version"`
	StageName      string         `json:"stage_name"`
	ArtifactType   ArtifactType   `json:"artifact_type"`
	ArtifactName   string         `json:"artifact_name"`
	Bucket         string         `json:"bucket"`
	Key            string         `json:"key"`
	Size           int64          `json:"size"`
	Checksum       string         `json:"checksum"`
	InputArtifacts []ArtifactRef  `json:"input_artifacts,omitempty"`
	Metadata       map[string]any `json:"artifact_metadata,omitempty"`
	Status         ArtifactStatus `json:"status"`
	Retention      Retention      `json:"retention"`
	DeletedAt      time.Time      `json:"deleted_at,omitempty"`
}

// VectorPoint is one row of the vector store: a deterministic id, its
// embedding, and a payload that is the sole source of chunk metadata.
type VectorPoint struct {
	ID      uint64        `json:"id"`
	Vector  []float32     `json:"vector"`
	Payload VectorPayload `json:"payload"`
}

// VectorPayload carries every required point payload key.
type VectorPayload struct {
	ChunkID      string   `json:"chunk_id"`
	Filename     string   `json:"filename"`
	SourceFile   string   `json:"source_file"`
	DocumentID   string   `json:"document_id"`
	Page         int      `json:"page,omitempty"`
	PageNumber   int      `json:"page_number,omitempty"`
	Section      string   `json:"section"`
	FieldName    string   `json:"field_name,omitempty"`
	Score        float64  `json:"score"`
	Text         string   `json:"text"`
	TextLength   int      `json:"text_length"`
	ProductID    string   `json:"product_id"`
	Version      int      `json:"version"`
	CollectionID string   `json:"collection_id"`
	CreatedAt    string   `json:"created_at"`
	DocScope     string   `json:"doc_scope,omitempty"`
	FieldScope   string   `json:"field_scope,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	TokenEst     int      `json:"token_est,omitempty"`
}

// VectorCollection describes a named Qdrant collection and its vector config.
type VectorCollection struct {
	Name       string `json:"name"`
	VectorSize int    `json:"vector_size"`
	Distance   string `json:"distance"`
}

// ACLAccessType enumerates the four ACL scopes.
type ACLAccessType string

const (
	ACLFull     ACLAccessType = "full"
	ACLIndex    ACLAccessType = "index"
	ACLDocument ACLAccessType = "document"
	ACLField    ACLAccessType = "field"
)

// ACL grants one user a scoped view of one product's vector collection.
// Scope fields are comma-separated identifier lists interpreted per
// AccessType.
type ACL struct {
	ID         string        `json:"id"`
	UserID     string        `json:"user_id"`
	ProductID  string        `json:"product_id"`
	AccessType ACLAccessType `json:"access_type"`
	IndexScope string        `json:"index_scope,omitempty"`
	DocScope   string        `json:"doc_scope,omitempty"`
	FieldScope string        `json:"field_scope,omitempty"`
}

// Playbook is a named preset of chunking, normalization, and evaluation
// parameters targeted at a content domain.
type Playbook struct {
	ID            string              `json:"id" yaml:"id"`
	Chunking      PlaybookChunking    `json:"chunking" yaml:"chunking"`
	NoisePatterns []string            `json:"noise_patterns" yaml:"noise_patterns"`
	RAGEvaluation RAGEvaluationConfig `json:"rag_evaluation" yaml:"rag_evaluation"`
}

// PlaybookChunking is the chunking section of a playbook YAML.
type PlaybookChunking struct {
	MaxTokens int              `json:"max_tokens" yaml:"max_tokens"`
	Overlap   int              `json:"overlap" yaml:"overlap"`
	Strategy  ChunkingStrategy `json:"strategy" yaml:"strategy"`
}

// RAGEvaluationConfig is the rag_evaluation section of a playbook YAML.
type RAGEvaluationConfig struct {
	RetrievalSettings RetrievalSettings `json:"retrieval_settings" yaml:"retrieval_settings"`
}

// RetrievalSettings bounds self-retrieval evaluation.
type RetrievalSettings struct {
	TopK       int `json:"top_k" yaml:"top_k"`
	MaxQueries int `json:"max_queries" yaml:"max_queries"`
}

// Built-in playbook ids.
const (
	PlaybookTech       = "TECH"
	PlaybookScanned    = "SCANNED"
	PlaybookRegulatory = "REGULATORY"
	PlaybookFinance    = "finance_banking"
	PlaybookLegal      = "legal"
)
