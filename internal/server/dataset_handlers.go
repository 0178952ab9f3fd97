package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/park285/agency-dashboard/internal/dataset"
	"github.com/park285/agency-dashboard/internal/httperror"
	"github.com/park285/agency-dashboard/internal/quota"
)

func bindQuery(c *gin.Context) (dataset.Query, bool) {
	var q dataset.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		httperror.Abort(c, httperror.NewBindError(err))
		return q, false
	}
	return q, true
}

// handleDataset: 기관 등 일반 데이터셋 목록. contacts는 가림/상한이 적용된 목록으로 보냅니다.
func (s *Server) handleDataset(c *gin.Context) {
	name := c.Param("name")
	if name == dataset.NameContacts {
		s.handleContacts(c)
		return
	}
	q, ok := bindQuery(c)
	if !ok {
		return
	}
	page, err := s.datasets.Query(name, q)
	if err != nil {
		httperror.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// handleContacts: 앞에서부터 일일 한도 수만큼의 연락처만 목록에 노출하고 이메일/전화는 가립니다.
func (s *Server) handleContacts(c *gin.Context) {
	userID, ok := s.resolveUser(c)
	if !ok {
		return
	}
	q, ok := bindQuery(c)
	if !ok {
		return
	}
	def, err := s.datasets.Definition(dataset.NameContacts)
	if err != nil {
		httperror.Abort(c, err)
		return
	}
	table, err := s.datasets.Table(dataset.NameContacts)
	if err != nil {
		httperror.Abort(c, err)
		return
	}

	st, err := s.quota.Status(c.Request.Context(), userID)
	if err != nil {
		s.writeContactLimitsError(c, err)
		return
	}

	viewable := table.Rows[:min(len(table.Rows), s.quota.Limit())]
	page := dataset.Apply(table, viewable, def, q)
	page.Rows = dataset.Mask(page.Rows, dataset.MaskedColumns...)

	c.JSON(http.StatusOK, ContactsResponse{Page: page, Quota: st})
}

// handleRevealContact: 한도를 1 차감한 뒤 연락처 상세와 소속 기관을 반환합니다.
// 차감을 확인하지 못하면 어떤 경우에도 상세를 반환하지 않습니다.
func (s *Server) handleRevealContact(c *gin.Context) {
	ctx := c.Request.Context()

	userID, ok := s.resolveUser(c)
	if !ok {
		return
	}

	contact, err := s.datasets.Find(dataset.NameContacts, c.Param("id"))
	if err != nil {
		httperror.Abort(c, err)
		return
	}

	res, err := s.quota.Increment(ctx, userID)
	if errors.Is(err, quota.ErrLimitExceeded) {
		writeRefusal(c)
		return
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "contact_reveal_denied", slog.String("user_id", userID), slog.Any("error", err))
		httperror.Abort(c, err)
		return
	}

	var agency dataset.Row
	if agencyID := contact.String("agency_id"); agencyID != "" {
		if row, err := s.datasets.Find(dataset.NameAgencies, agencyID); err == nil {
			agency = row
		}
	}

	c.JSON(http.StatusOK, RevealResponse{
		Success: true,
		Quota: IncrementResponse{
			Success:   true,
			Count:     res.Count,
			Limit:     res.Limit,
			Remaining: res.Remaining,
		},
		Contact: contact,
		Agency:  agency,
	})
}
