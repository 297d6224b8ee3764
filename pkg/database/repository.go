package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/scotty-git/sidelinescott-sub003/pkg/models"
)

// CreateConversation inserts a new conversation row.
func (c *Client) CreateConversation(ctx context.Context, conv models.Conversation) error {
	_, err := c.pool.Exec(ctx,
		`INSERT INTO conversations (id, created_at) VALUES ($1, $2)`,
		conv.ID, conv.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

// CreateTurns inserts the conversation's turns in a single batch, ordered
// by turn_sequence (I1 is enforced purely by that column, not by row
// order).
func (c *Client) CreateTurns(ctx context.Context, turns []models.Turn) error {
	batch := &pgx.Batch{}
	for _, t := range turns {
		batch.Queue(
			`INSERT INTO turns (id, conversation_id, turn_sequence, speaker, raw_text)
			 VALUES ($1, $2, $3, $4, $5)`,
			t.ID, t.ConversationID, t.TurnSequence, string(t.Speaker), t.RawText)
	}
	br := c.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range turns {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert turn: %w", err)
		}
	}
	return nil
}

// TurnsByConversation returns every turn for a conversation, ordered by
// turn_sequence ascending.
func (c *Client) TurnsByConversation(ctx context.Context, conversationID string) ([]models.Turn, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT id, conversation_id, turn_sequence, speaker, raw_text
		 FROM turns WHERE conversation_id = $1 ORDER BY turn_sequence ASC`,
		conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	defer rows.Close()

	var out []models.Turn
	for rows.Next() {
		var t models.Turn
		var speaker string
		if err := rows.Scan(&t.ID, &t.ConversationID, &t.TurnSequence, &speaker, &t.RawText); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		t.Speaker = models.Speaker(speaker)
		out = append(out, t)
	}
	return out, rows.Err()
}

// TurnByID fetches a single turn.
func (c *Client) TurnByID(ctx context.Context, turnID string) (models.Turn, error) {
	var t models.Turn
	var speaker string
	err := c.pool.QueryRow(ctx,
		`SELECT id, conversation_id, turn_sequence, speaker, raw_text FROM turns WHERE id = $1`,
		turnID).Scan(&t.ID, &t.ConversationID, &t.TurnSequence, &speaker, &t.RawText)
	if err != nil {
		return models.Turn{}, fmt.Errorf("failed to fetch turn: %w", err)
	}
	t.Speaker = models.Speaker(speaker)
	return t, nil
}

// CreatePromptTemplate inserts a new prompt template row.
func (c *Client) CreatePromptTemplate(ctx context.Context, tpl models.PromptTemplate) error {
	vars, err := json.Marshal(tpl.Variables)
	if err != nil {
		return fmt.Errorf("failed to marshal template variables: %w", err)
	}
	_, err = c.pool.Exec(ctx,
		`INSERT INTO prompt_templates (id, name, template_text, variables, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		tpl.ID, tpl.Name, tpl.TemplateText, vars, tpl.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create prompt template: %w", err)
	}
	return nil
}

// PromptTemplateByID fetches a prompt template by ID.
func (c *Client) PromptTemplateByID(ctx context.Context, id string) (models.PromptTemplate, error) {
	var tpl models.PromptTemplate
	var vars []byte
	err := c.pool.QueryRow(ctx,
		`SELECT id, name, template_text, variables, created_at FROM prompt_templates WHERE id = $1`,
		id).Scan(&tpl.ID, &tpl.Name, &tpl.TemplateText, &vars, &tpl.CreatedAt)
	if err != nil {
		return models.PromptTemplate{}, fmt.Errorf("failed to fetch prompt template: %w", err)
	}
	if err := json.Unmarshal(vars, &tpl.Variables); err != nil {
		return models.PromptTemplate{}, fmt.Errorf("failed to unmarshal template variables: %w", err)
	}
	return tpl, nil
}

// CreateEvaluation inserts a new evaluation row.
func (c *Client) CreateEvaluation(ctx context.Context, e models.Evaluation) error {
	settings, err := json.Marshal(e.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	seed := e.SeedCustomer
	if seed == nil {
		seed = map[string]any{}
	}
	seedJSON, err := json.Marshal(seed)
	if err != nil {
		return fmt.Errorf("failed to marshal seed customer: %w", err)
	}
	_, err = c.pool.Exec(ctx,
		`INSERT INTO evaluations
		 (id, conversation_id, prompt_template_id, function_prompt_template_id, settings, seed_customer, user_id, status, turns_processed, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.ConversationID, e.PromptTemplateID, e.FunctionPromptTemplateID, settings, seedJSON, e.UserID, e.Status, e.TurnsProcessed, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create evaluation: %w", err)
	}
	return nil
}

// EvaluationByID fetches an evaluation by ID.
func (c *Client) EvaluationByID(ctx context.Context, id string) (models.Evaluation, error) {
	var e models.Evaluation
	var settings, seed []byte
	var status string
	err := c.pool.QueryRow(ctx,
		`SELECT id, conversation_id, prompt_template_id, function_prompt_template_id, settings, seed_customer, user_id, status, turns_processed, created_at
		 FROM evaluations WHERE id = $1`, id).
		Scan(&e.ID, &e.ConversationID, &e.PromptTemplateID, &e.FunctionPromptTemplateID, &settings, &seed, &e.UserID, &status, &e.TurnsProcessed, &e.CreatedAt)
	if err != nil {
		return models.Evaluation{}, fmt.Errorf("failed to fetch evaluation: %w", err)
	}
	e.Status = models.EvaluationStatus(status)
	if err := json.Unmarshal(settings, &e.Settings); err != nil {
		return models.Evaluation{}, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	if err := json.Unmarshal(seed, &e.SeedCustomer); err != nil {
		return models.Evaluation{}, fmt.Errorf("failed to unmarshal seed customer: %w", err)
	}
	return e, nil
}

// UpdateEvaluationProgress updates the mutable fields of an evaluation:
// status and turns_processed (spec §3's only mutable Evaluation fields).
func (c *Client) UpdateEvaluationProgress(ctx context.Context, id string, status models.EvaluationStatus, turnsProcessed int) error {
	_, err := c.pool.Exec(ctx,
		`UPDATE evaluations SET status = $2, turns_processed = $3 WHERE id = $1`,
		id, string(status), turnsProcessed)
	if err != nil {
		return fmt.Errorf("failed to update evaluation progress: %w", err)
	}
	return nil
}

// CreateCleanedTurn persists a CleanedTurn row. A (evaluation_id, turn_id)
// conflict is a no-op — CleanedTurn rows are write-once (I2) and the
// idempotency fast path is handled one layer up by reading before writing.
func (c *Client) CreateCleanedTurn(ctx context.Context, ct models.CleanedTurn) error {
	corrections, err := json.Marshal(ct.Corrections)
	if err != nil {
		return fmt.Errorf("failed to marshal corrections: %w", err)
	}
	timing, err := json.Marshal(ct.TimingBreakdown)
	if err != nil {
		return fmt.Errorf("failed to marshal timing breakdown: %w", err)
	}
	vars, err := json.Marshal(ct.TemplateVariables)
	if err != nil {
		return fmt.Errorf("failed to marshal template variables: %w", err)
	}
	_, err = c.pool.Exec(ctx,
		`INSERT INTO cleaned_turns
		 (id, evaluation_id, turn_id, turn_sequence, speaker, cleaned_text, confidence_score,
		  cleaning_applied, cleaning_level, processing_time_ms, corrections, context_detected,
		  ai_model_used, timing_breakdown, gemini_prompt, gemini_response, template_variables, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		 ON CONFLICT (evaluation_id, turn_id) DO NOTHING`,
		ct.ID, ct.EvaluationID, ct.TurnID, ct.TurnSequence, string(ct.Speaker), ct.CleanedText,
		string(ct.ConfidenceScore), ct.CleaningApplied, string(ct.CleaningLevel), ct.ProcessingTimeMs,
		corrections, ct.ContextDetected, ct.AIModelUsed, timing, ct.GeminiPrompt, ct.GeminiResponse,
		vars, ct.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create cleaned turn: %w", err)
	}
	return nil
}

// CleanedTurnByEvaluationAndTurn fetches a single CleanedTurn, or returns
// pgx.ErrNoRows unwrapped if it does not exist yet. get_gemini_details
// reads through it; process_turn's idempotency check uses the in-memory
// EvaluationState instead.
func (c *Client) CleanedTurnByEvaluationAndTurn(ctx context.Context, evaluationID, turnID string) (models.CleanedTurn, error) {
	var ct models.CleanedTurn
	var speaker, confidence, level string
	var corrections, timing, vars []byte
	err := c.pool.QueryRow(ctx,
		`SELECT id, evaluation_id, turn_id, turn_sequence, speaker, cleaned_text, confidence_score,
		        cleaning_applied, cleaning_level, processing_time_ms, corrections, context_detected,
		        ai_model_used, timing_breakdown, gemini_prompt, gemini_response, template_variables, created_at
		 FROM cleaned_turns WHERE evaluation_id = $1 AND turn_id = $2`,
		evaluationID, turnID).Scan(
		&ct.ID, &ct.EvaluationID, &ct.TurnID, &ct.TurnSequence, &speaker, &ct.CleanedText, &confidence,
		&ct.CleaningApplied, &level, &ct.ProcessingTimeMs, &corrections, &ct.ContextDetected,
		&ct.AIModelUsed, &timing, &ct.GeminiPrompt, &ct.GeminiResponse, &vars, &ct.CreatedAt)
	if err != nil {
		return models.CleanedTurn{}, err
	}
	ct.Speaker = models.Speaker(speaker)
	ct.ConfidenceScore = models.ConfidenceLevel(confidence)
	ct.CleaningLevel = models.CleaningLevel(level)
	_ = json.Unmarshal(corrections, &ct.Corrections)
	_ = json.Unmarshal(timing, &ct.TimingBreakdown)
	_ = json.Unmarshal(vars, &ct.TemplateVariables)
	return ct, nil
}

// CleanedTurnsByEvaluation returns every CleanedTurn for an evaluation,
// oldest-first by turn_sequence — the sliding-window readers' source of
// truth.
func (c *Client) CleanedTurnsByEvaluation(ctx context.Context, evaluationID string) ([]models.CleanedTurn, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT id, evaluation_id, turn_id, turn_sequence, speaker, cleaned_text, confidence_score,
		        cleaning_applied, cleaning_level, processing_time_ms, corrections, context_detected,
		        ai_model_used, timing_breakdown, gemini_prompt, gemini_response, template_variables, created_at
		 FROM cleaned_turns WHERE evaluation_id = $1 ORDER BY turn_sequence ASC`,
		evaluationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cleaned turns: %w", err)
	}
	defer rows.Close()

	var out []models.CleanedTurn
	for rows.Next() {
		var ct models.CleanedTurn
		var speaker, confidence, level string
		var corrections, timing, vars []byte
		if err := rows.Scan(&ct.ID, &ct.EvaluationID, &ct.TurnID, &ct.TurnSequence, &speaker, &ct.CleanedText, &confidence,
			&ct.CleaningApplied, &level, &ct.ProcessingTimeMs, &corrections, &ct.ContextDetected,
			&ct.AIModelUsed, &timing, &ct.GeminiPrompt, &ct.GeminiResponse, &vars, &ct.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cleaned turn: %w", err)
		}
		ct.Speaker = models.Speaker(speaker)
		ct.ConfidenceScore = models.ConfidenceLevel(confidence)
		ct.CleaningLevel = models.CleaningLevel(level)
		_ = json.Unmarshal(corrections, &ct.Corrections)
		_ = json.Unmarshal(timing, &ct.TimingBreakdown)
		_ = json.Unmarshal(vars, &ct.TemplateVariables)
		out = append(out, ct)
	}
	return out, rows.Err()
}

// CreateCalledFunction inserts a CalledFunction row. Unlike CleanedTurn,
// several CalledFunction rows may exist per (evaluation_id, turn_id) — one
// per decided function call — ordered by created_at (spec §3).
func (c *Client) CreateCalledFunction(ctx context.Context, cf models.CalledFunction) error {
	params, err := json.Marshal(cf.Parameters)
	if err != nil {
		return fmt.Errorf("failed to marshal parameters: %w", err)
	}
	timing, err := json.Marshal(cf.TimingBreakdown)
	if err != nil {
		return fmt.Errorf("failed to marshal timing breakdown: %w", err)
	}
	before, err := json.Marshal(cf.MockDataBefore)
	if err != nil {
		return fmt.Errorf("failed to marshal mock data before: %w", err)
	}
	after, err := json.Marshal(cf.MockDataAfter)
	if err != nil {
		return fmt.Errorf("failed to marshal mock data after: %w", err)
	}
	vars, err := json.Marshal(cf.TemplateVariables)
	if err != nil {
		return fmt.Errorf("failed to marshal template variables: %w", err)
	}
	_, err = c.pool.Exec(ctx,
		`INSERT INTO called_functions
		 (id, evaluation_id, turn_id, function_name, parameters, result, executed, confidence_score,
		  decision_reasoning, processing_time_ms, timing_breakdown, function_template_id,
		  gemini_prompt, gemini_response, mock_data_before, mock_data_after, template_variables, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		cf.ID, cf.EvaluationID, cf.TurnID, cf.FunctionName, params, cf.Result, cf.Executed, cf.ConfidenceScore,
		cf.DecisionReasoning, cf.ProcessingTimeMs, timing, cf.FunctionTemplateID, cf.GeminiPrompt,
		cf.GeminiResponse, before, after, vars, cf.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create called function: %w", err)
	}
	return nil
}

// CalledFunctionsByEvaluation returns every CalledFunction for an
// evaluation, oldest-first by created_at — used both to rebuild the
// mirrored customer record (I4) and to build the decider's function-call
// window.
func (c *Client) CalledFunctionsByEvaluation(ctx context.Context, evaluationID string) ([]models.CalledFunction, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT id, evaluation_id, turn_id, function_name, parameters, result, executed, confidence_score,
		        decision_reasoning, processing_time_ms, timing_breakdown, function_template_id,
		        gemini_prompt, gemini_response, mock_data_before, mock_data_after, template_variables, created_at
		 FROM called_functions WHERE evaluation_id = $1 ORDER BY created_at ASC`,
		evaluationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list called functions: %w", err)
	}
	defer rows.Close()

	var out []models.CalledFunction
	for rows.Next() {
		var cf models.CalledFunction
		var params, timing, before, after, vars []byte
		if err := rows.Scan(&cf.ID, &cf.EvaluationID, &cf.TurnID, &cf.FunctionName, &params, &cf.Result, &cf.Executed,
			&cf.ConfidenceScore, &cf.DecisionReasoning, &cf.ProcessingTimeMs, &timing, &cf.FunctionTemplateID,
			&cf.GeminiPrompt, &cf.GeminiResponse, &before, &after, &vars, &cf.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan called function: %w", err)
		}
		_ = json.Unmarshal(params, &cf.Parameters)
		_ = json.Unmarshal(timing, &cf.TimingBreakdown)
		_ = json.Unmarshal(before, &cf.MockDataBefore)
		_ = json.Unmarshal(after, &cf.MockDataAfter)
		_ = json.Unmarshal(vars, &cf.TemplateVariables)
		out = append(out, cf)
	}
	return out, rows.Err()
}

// UpsertCost inserts or replaces the single Cost row for (evaluation_id,
// turn_id). process_turn writes it once per turn, after both the cleaner
// and the decider stage have run.
func (c *Client) UpsertCost(ctx context.Context, cost models.Cost) error {
	_, err := c.pool.Exec(ctx,
		`INSERT INTO costs
		 (id, evaluation_id, turn_id, cleaning_input_tokens, cleaning_output_tokens, cleaning_cost,
		  function_input_tokens, function_output_tokens, function_cost, total_tokens, total_cost, model_used, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		 ON CONFLICT (evaluation_id, turn_id) DO UPDATE SET
		   cleaning_input_tokens = EXCLUDED.cleaning_input_tokens,
		   cleaning_output_tokens = EXCLUDED.cleaning_output_tokens,
		   cleaning_cost = EXCLUDED.cleaning_cost,
		   function_input_tokens = EXCLUDED.function_input_tokens,
		   function_output_tokens = EXCLUDED.function_output_tokens,
		   function_cost = EXCLUDED.function_cost,
		   total_tokens = EXCLUDED.total_tokens,
		   total_cost = EXCLUDED.total_cost,
		   model_used = EXCLUDED.model_used`,
		cost.ID, cost.EvaluationID, cost.TurnID, cost.CleaningInputTokens, cost.CleaningOutputTokens, cost.CleaningCost,
		cost.FunctionInputTokens, cost.FunctionOutputTokens, cost.FunctionCost, cost.TotalTokens, cost.TotalCost,
		cost.ModelUsed, cost.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert cost: %w", err)
	}
	return nil
}

// TotalCostByEvaluation sums every Cost row's total_cost for an
// evaluation.
func (c *Client) TotalCostByEvaluation(ctx context.Context, evaluationID string) (float64, error) {
	var total float64
	err := c.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(total_cost), 0) FROM costs WHERE evaluation_id = $1`, evaluationID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum evaluation cost: %w", err)
	}
	return total, nil
}
