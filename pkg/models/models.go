// Package models holds the value records shared across the evaluation
// engine: conversations, raw turns, evaluations, prompt templates, and the
// per-turn rows the engine persists. These are plain data carriers; no
// package in this module gives them behavior beyond simple accessors.
package models

import "time"

// Speaker classifies a raw turn's originator. Assistant-like speakers are
// bypass-eligible for both the cleaner and the decider (spec I5).
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// ConfidenceLevel is the cleaner's confidence in its own output.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "HIGH"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceLow    ConfidenceLevel = "LOW"
)

// CleaningLevel controls how aggressively the cleaner rewrites a turn.
type CleaningLevel string

const (
	CleaningNone  CleaningLevel = "none"
	CleaningLight CleaningLevel = "light"
	CleaningFull  CleaningLevel = "full"
)

// EvaluationStatus is the lifecycle state of an Evaluation row.
type EvaluationStatus string

const (
	EvaluationActive   EvaluationStatus = "active"
	EvaluationComplete EvaluationStatus = "complete"
	EvaluationErrored  EvaluationStatus = "errored"
)

// Conversation is an immutable ordered sequence of Turns, ingested once.
type Conversation struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Turn is a single raw transcript line. Immutable after ingestion.
// TurnSequence is the sole ordering key for a conversation (I1).
type Turn struct {
	ID             string  `json:"id"`
	ConversationID string  `json:"conversation_id"`
	TurnSequence   int     `json:"turn_sequence"`
	Speaker        Speaker `json:"speaker"`
	RawText        string  `json:"raw_text"`
}

// PromptTemplate is a named, versioned template body. Immutable once an
// Evaluation pins it by ID.
type PromptTemplate struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	TemplateText string    `json:"template_text"`
	Variables    []string  `json:"variables"`
	CreatedAt    time.Time `json:"created_at"`
}

// Evaluation is a reproducible run bound to a conversation, a pair of
// pinned prompt templates, and a settings overlay. Status and
// TurnsProcessed are its only mutable fields.
type Evaluation struct {
	ID                       string           `json:"id"`
	ConversationID           string           `json:"conversation_id"`
	PromptTemplateID         string           `json:"prompt_template_id"`
	FunctionPromptTemplateID string           `json:"function_prompt_template_id"`
	Settings                 Settings         `json:"settings"`
	UserID                   string           `json:"user_id"`
	Status                   EvaluationStatus `json:"status"`
	TurnsProcessed           int              `json:"turns_processed"`
	// SeedCustomer is the conversation-level source customer record the
	// Mirrored Customer Store (C7) copies on first use (spec §4.7). Not
	// named in the distilled data model, which is silent on where the
	// "source customer" comes from; supplemented here as the obvious home
	// for it rather than leaving C7's seed undefined.
	SeedCustomer map[string]any `json:"seed_customer"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Correction records a single cleaner edit, when the cleaner's structured
// response supplies a correction list.
type Correction struct {
	Original  string `json:"original"`
	Corrected string `json:"corrected"`
	Confidence string `json:"confidence"`
	Reason    string `json:"reason"`
}

// TimingBreakdown is the per-stage elapsed-time map recorded with a
// CleanedTurn (spec §4.8). Values are milliseconds; zero means "not
// reached" rather than "instant".
type TimingBreakdown struct {
	InitializationEnd          int64 `json:"initialization_end,omitempty"`
	CleanerStart               int64 `json:"cleaner_start,omitempty"`
	CleanerEnd                 int64 `json:"cleaner_end,omitempty"`
	CleanerPromptPreparationMs int64 `json:"cleaner_prompt_preparation_ms,omitempty"`
	CleanerAPIMs               int64 `json:"cleaner_api_ms,omitempty"`
	CleanerResponseParsingMs   int64 `json:"cleaner_response_parsing_ms,omitempty"`
	DatabaseSaveMs             int64 `json:"database_save_ms,omitempty"`
	FunctionContextStart       int64 `json:"function_context_start,omitempty"`
	FunctionContextEnd         int64 `json:"function_context_end,omitempty"`
	FunctionPromptStart        int64 `json:"function_prompt_start,omitempty"`
	FunctionPromptEnd          int64 `json:"function_prompt_end,omitempty"`
	FunctionGeminiStart        int64 `json:"function_gemini_start,omitempty"`
	FunctionGeminiEnd          int64 `json:"function_gemini_end,omitempty"`
	FunctionParseStart         int64 `json:"function_parse_start,omitempty"`
	FunctionParseEnd           int64 `json:"function_parse_end,omitempty"`
	FunctionExecuteStart       int64 `json:"function_execute_start,omitempty"`
	FunctionExecuteEnd         int64 `json:"function_execute_end,omitempty"`
	End                        int64 `json:"end,omitempty"`
	TotalMs                    int64 `json:"total_ms,omitempty"`
}

// CleanedTurn is the output of the Cleaner stage, persisted once per
// (EvaluationID, TurnID) pair (I2) and never updated thereafter.
type CleanedTurn struct {
	ID                string            `json:"id"`
	EvaluationID      string            `json:"evaluation_id"`
	TurnID            string            `json:"turn_id"`
	TurnSequence      int               `json:"turn_sequence"`
	Speaker           Speaker           `json:"speaker"`
	CleanedText       string            `json:"cleaned_text"`
	ConfidenceScore   ConfidenceLevel   `json:"confidence_score"`
	CleaningApplied   bool              `json:"cleaning_applied"`
	CleaningLevel     CleaningLevel     `json:"cleaning_level"`
	ProcessingTimeMs  int64             `json:"processing_time_ms"`
	Corrections       []Correction      `json:"corrections"`
	ContextDetected   string            `json:"context_detected"`
	AIModelUsed       string            `json:"ai_model_used"`
	TimingBreakdown   TimingBreakdown   `json:"timing_breakdown"`
	GeminiPrompt      string            `json:"gemini_prompt"`
	GeminiResponse    string            `json:"gemini_response"`
	TemplateVariables map[string]any    `json:"template_variables"`
	CreatedAt         time.Time         `json:"created_at"`
}

// CalledFunction records one side-effect function invocation decided by
// the decider stage, ordered per (EvaluationID, TurnID) by insertion time.
type CalledFunction struct {
	ID                 string          `json:"id"`
	EvaluationID       string          `json:"evaluation_id"`
	TurnID             string          `json:"turn_id"`
	FunctionName       string          `json:"function_name"`
	Parameters         map[string]any  `json:"parameters"`
	Result             string          `json:"result"`
	Executed           bool            `json:"executed"`
	ConfidenceScore    string          `json:"confidence_score"`
	DecisionReasoning  string          `json:"decision_reasoning"`
	ProcessingTimeMs   int64           `json:"processing_time_ms"`
	TimingBreakdown    TimingBreakdown `json:"timing_breakdown"`
	FunctionTemplateID string          `json:"function_template_id"`
	GeminiPrompt       string          `json:"gemini_prompt"`
	GeminiResponse     string          `json:"gemini_response"`
	MockDataBefore     map[string]any  `json:"mock_data_before"`
	MockDataAfter      map[string]any  `json:"mock_data_after"`
	TemplateVariables  map[string]any  `json:"template_variables"`
	CreatedAt          time.Time       `json:"created_at"`
}

// Cost is the single per-turn accounting row, unique on
// (EvaluationID, TurnID).
type Cost struct {
	ID                   string    `json:"id"`
	EvaluationID         string    `json:"evaluation_id"`
	TurnID               string    `json:"turn_id"`
	CleaningInputTokens  int       `json:"cleaning_input_tokens"`
	CleaningOutputTokens int       `json:"cleaning_output_tokens"`
	CleaningCost         float64   `json:"cleaning_cost"`
	FunctionInputTokens  int       `json:"function_input_tokens"`
	FunctionOutputTokens int       `json:"function_output_tokens"`
	FunctionCost         float64   `json:"function_cost"`
	TotalTokens          int       `json:"total_tokens"`
	TotalCost            float64   `json:"total_cost"`
	ModelUsed            string    `json:"model_used"`
	CreatedAt            time.Time `json:"created_at"`
}
