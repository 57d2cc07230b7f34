package api

import (
	"net/http"

	"github.com/vitaai/vita/internal/knowledge"
)

// entryCreateRequest is the body of POST /entries.
type entryCreateRequest struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	SourceURL string `json:"sourceUrl"`
}

// entryUpdateRequest is the body of PATCH /entries/{id}. Absent fields
// keep their stored values.
type entryUpdateRequest struct {
	Title     *string `json:"title"`
	Content   *string `json:"content"`
	SourceURL *string `json:"sourceUrl"`
}

// entrySearchRequest is the body of POST /entries/search. Similarity is
// a pointer so an explicit zero is distinguishable from an absent field.
type entrySearchRequest struct {
	Question   string   `json:"question"`
	Limit      int      `json:"limit"`
	Similarity *float64 `json:"similarity"`
}

// scrapeRequest is the body of POST /entries/scrape.
type scrapeRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleEntryCreate(w http.ResponseWriter, r *http.Request) {
	var req entryCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	entry, err := s.knowledge.Create(r.Context(), knowledge.CreateParams{
		Title:     req.Title,
		Content:   req.Content,
		SourceURL: req.SourceURL,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleEntryList(w http.ResponseWriter, r *http.Request) {
	entries, err := s.knowledge.List(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleEntryGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	entry, err := s.knowledge.Get(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleEntryUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req entryUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	entry, err := s.knowledge.Update(r.Context(), id, knowledge.UpdateParams{
		Title:     req.Title,
		Content:   req.Content,
		SourceURL: req.SourceURL,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleEntryDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	entry, err := s.knowledge.Delete(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleEntrySearch(w http.ResponseWriter, r *http.Request) {
	var req entrySearchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	limit := req.Limit
	if limit == 0 {
		limit = 3
	}
	threshold := 0.6
	if req.Similarity != nil {
		threshold = *req.Similarity
	}

	results, err := s.knowledge.Search(r.Context(), req.Question, limit, threshold)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if results == nil {
		results = []knowledge.SimilarityResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleEntryScrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	page, err := s.scraper.Scrape(r.Context(), req.URL)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
