package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cuemap/cuemap/internal/cuemap"
)

// =============================================================================
// HEALTH
// =============================================================================

func (s *Server) healthHandler(c *gin.Context) {
	SuccessResponse(c, "ok", gin.H{"status": "healthy"})
}

// =============================================================================
// MEMORIES
// =============================================================================

type createMemoryRequest struct {
	Content                 string   `json:"content" binding:"required"`
	Cues                    []string `json:"cues"`
	DisableTemporalChunking bool     `json:"disable_temporal_chunking"`
}

func (s *Server) createMemory(c *gin.Context) {
	var req createMemoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestError(c, err.Error())
		return
	}
	if err := validateContent(req.Content); err != nil {
		BadRequestError(c, err.Error())
		return
	}
	if err := validateCues(req.Cues); err != nil {
		BadRequestError(c, err.Error())
		return
	}

	engine, err := s.tenantEngine(c)
	if err != nil {
		EngineError(c, err)
		return
	}

	results, err := engine.RememberChunked(s.chunker, req.Content, req.Cues, req.DisableTemporalChunking)
	if err != nil {
		EngineError(c, err)
		return
	}

	first := results[0]

	CreatedResponse(c, "memory created", gin.H{
		"id":             first.Record.ID,
		"status":         "stored",
		"accepted_cues":  first.AcceptedCues,
		"rejected_cues":  first.RejectedCues,
		"chunk_count":    len(results),
	})
}

func (s *Server) getMemory(c *gin.Context) {
	id := c.Param("id")
	engine, err := s.tenantEngine(c)
	if err != nil {
		EngineError(c, err)
		return
	}
	rec := engine.Store.Get(id)
	if rec == nil {
		NotFoundErrorWithID(c, id)
		return
	}
	SuccessResponse(c, "ok", gin.H{
		"id":            rec.ID,
		"content":       rec.Content,
		"cues":          rec.CueList(),
		"created_at":    rec.CreatedAt,
		"reinforcement": rec.Reinforcement(),
	})
}

type reinforceRequest struct {
	Cues []string `json:"cues"`
}

func (s *Server) reinforceMemory(c *gin.Context) {
	id := c.Param("id")
	var req reinforceRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequestError(c, err.Error())
			return
		}
	}
	if err := validateCues(req.Cues); err != nil {
		BadRequestError(c, err.Error())
		return
	}

	engine, err := s.tenantEngine(c)
	if err != nil {
		EngineError(c, err)
		return
	}

	result, err := engine.Reinforce(id, req.Cues)
	if err != nil {
		EngineError(c, err)
		return
	}
	SuccessResponse(c, "ok", gin.H{
		"id":            result.ID,
		"reinforcement": result.Reinforcement,
	})
}

// =============================================================================
// RECALL
// =============================================================================

type recallRequest struct {
	Cues                        []string `json:"cues"`
	QueryText                   string   `json:"query_text"`
	Limit                       int      `json:"limit"`
	AutoReinforce               bool     `json:"auto_reinforce"`
	Explain                     bool     `json:"explain"`
	DisablePatternCompletion    bool     `json:"disable_pattern_completion"`
	DisableSalienceBias         bool     `json:"disable_salience_bias"`
	DisableSystemsConsolidation bool     `json:"disable_systems_consolidation"`
}

func (req recallRequest) flags() cuemap.RecallFlags {
	return cuemap.RecallFlags{
		AutoReinforce:               req.AutoReinforce,
		Explain:                     req.Explain,
		DisablePatternCompletion:    req.DisablePatternCompletion,
		DisableSalienceBias:         req.DisableSalienceBias,
		DisableSystemsConsolidation: req.DisableSystemsConsolidation,
	}
}

func (s *Server) recall(c *gin.Context) {
	var req recallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestError(c, err.Error())
		return
	}
	if err := validateCues(req.Cues); err != nil {
		BadRequestError(c, err.Error())
		return
	}
	if err := validateQueryText(req.QueryText); err != nil {
		BadRequestError(c, err.Error())
		return
	}
	if len(req.Cues) == 0 && req.QueryText == "" {
		BadRequestError(c, "either cues or query_text is required")
		return
	}

	engine, err := s.tenantEngine(c)
	if err != nil {
		EngineError(c, err)
		return
	}

	// Direct cues go through alias expansion (§4.7); cues resolved from
	// query_text already carry a lexicon-derived weight and are passed
	// through untouched so that weight isn't clobbered back to 1.0.
	weighted := engine.Aliases.ExpandWeighted(req.Cues)
	if req.QueryText != "" {
		resolved, err := s.lex.Resolve(req.QueryText, clampLimit(req.Limit))
		if err != nil {
			EngineError(c, err)
			return
		}
		weighted = append(weighted, resolved...)
	}
	if len(weighted) == 0 {
		SuccessResponse(c, "ok", gin.H{"results": []cuemap.RecallResult{}})
		return
	}

	start := engine.Clock()
	results, err := engine.Recall(cuemap.RecallQuery{
		Cues:  weighted,
		Limit: clampLimit(req.Limit),
		Flags: req.flags(),
	})
	if err != nil {
		EngineError(c, err)
		return
	}
	latencyMs := float64(engine.Clock()-start) / 1000.0

	SuccessResponse(c, "ok", gin.H{
		"results":          results,
		"engine_latency_ms": latencyMs,
	})
}

type recallGroundedRequest struct {
	QueryText   string `json:"query_text" binding:"required"`
	TokenBudget int    `json:"token_budget"`
	Limit       int    `json:"limit"`
}

// recallGrounded implements the `/recall/grounded` endpoint named in §6's
// table but left undefined in §4: resolve query_text through the lexicon,
// recall with explain=true, and build a token-budget-trimmed proof from
// each result's matched cues and match integrity.
func (s *Server) recallGrounded(c *gin.Context) {
	var req recallGroundedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestError(c, err.Error())
		return
	}
	if err := validateQueryText(req.QueryText); err != nil {
		BadRequestError(c, err.Error())
		return
	}
	budget := req.TokenBudget
	if budget <= 0 {
		budget = 2000
	}
	limit := clampLimit(req.Limit)

	engine, err := s.tenantEngine(c)
	if err != nil {
		EngineError(c, err)
		return
	}

	weighted, err := s.lex.Resolve(req.QueryText, limit)
	if err != nil {
		EngineError(c, err)
		return
	}
	if len(weighted) == 0 {
		SuccessResponse(c, "ok", gin.H{"verified_context": "", "proof": []gin.H{}})
		return
	}

	start := engine.Clock()
	results, err := engine.Recall(cuemap.RecallQuery{
		Cues:  weighted,
		Limit: limit,
		Flags: cuemap.RecallFlags{Explain: true},
	})
	if err != nil {
		EngineError(c, err)
		return
	}
	latencyMs := float64(engine.Clock()-start) / 1000.0

	var sb strings.Builder
	proof := make([]gin.H, 0, len(results))
	tokensUsed := 0
	for _, r := range results {
		tokens := (len(r.Content) + 3) / 4 // byte/4 token-count approximation
		if tokensUsed+tokens > budget && tokensUsed > 0 {
			break
		}
		sb.WriteString(r.Content)
		sb.WriteString("\n")
		tokensUsed += tokens
		var matched []string
		if r.Explain != nil {
			matched = r.Explain.MatchedCues
		}
		proof = append(proof, gin.H{
			"id":              r.ID,
			"matched_cues":    matched,
			"match_integrity": r.MatchIntegrity,
		})
	}

	SuccessResponse(c, "ok", gin.H{
		"verified_context":   strings.TrimSpace(sb.String()),
		"proof":              proof,
		"engine_latency_ms": latencyMs,
	})
}

// =============================================================================
// STATS
// =============================================================================

func (s *Server) stats(c *gin.Context) {
	engine, err := s.tenantEngine(c)
	if err != nil {
		EngineError(c, err)
		return
	}
	st := engine.Stats()
	SuccessResponse(c, "ok", gin.H{
		"total_memories": st.TotalMemories,
		"total_cues":     st.TotalCues,
		"cues":           st.Cues,
		"max_depth":      st.MaxDepth,
		"mean_depth":     st.MeanDepth,
		"job_queue_len":  s.jobs.Len(),
	})
}

// =============================================================================
// ALIASES
// =============================================================================

type createAliasRequest struct {
	From   string  `json:"from" binding:"required"`
	To     string  `json:"to" binding:"required"`
	Weight float64 `json:"weight"`
}

func (s *Server) createAlias(c *gin.Context) {
	var req createAliasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestError(c, err.Error())
		return
	}
	engine, err := s.tenantEngine(c)
	if err != nil {
		EngineError(c, err)
		return
	}
	engine.ProposeAlias(req.From, req.To, req.Weight)
	SuccessResponse(c, "alias registered", gin.H{"status": "ok"})
}

type mergeAliasesRequest struct {
	Cues []string `json:"cues" binding:"required"`
	To   string   `json:"to" binding:"required"`
}

func (s *Server) mergeAliases(c *gin.Context) {
	var req mergeAliasesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestError(c, err.Error())
		return
	}
	engine, err := s.tenantEngine(c)
	if err != nil {
		EngineError(c, err)
		return
	}
	count := engine.Aliases.Merge(req.Cues, req.To)
	SuccessResponse(c, "aliases merged", gin.H{"status": "ok", "count": count})
}

func (s *Server) listAliases(c *gin.Context) {
	cue := c.Query("cue")
	if cue == "" {
		BadRequestError(c, "cue query parameter is required")
		return
	}
	engine, err := s.tenantEngine(c)
	if err != nil {
		EngineError(c, err)
		return
	}
	aliases := engine.Aliases.Get(cue)
	SuccessResponse(c, "ok", gin.H{"aliases": aliases})
}

// =============================================================================
// TENANTS
// =============================================================================

type createTenantRequest struct {
	ProjectID string `json:"project_id" binding:"required"`
}

func (s *Server) createTenant(c *gin.Context) {
	var req createTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestError(c, err.Error())
		return
	}
	s.tenants.CreateTenant(req.ProjectID)
	CreatedResponse(c, "tenant created", gin.H{"project_id": req.ProjectID})
}

func (s *Server) listTenants(c *gin.Context) {
	tenants := s.tenants.ListTenants()
	sort.Strings(tenants)
	SuccessResponse(c, "ok", gin.H{"tenants": tenants})
}

func (s *Server) dropTenant(c *gin.Context) {
	id := c.Param("id")
	if !s.tenants.DropTenant(id) {
		ErrorResponse(c, http.StatusBadRequest, "cannot drop default tenant or unknown tenant")
		return
	}
	SuccessResponse(c, "tenant dropped", gin.H{"project_id": id})
}
