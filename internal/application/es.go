package application

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/lowzingo/members-api/internal/domain/entity"
)

// indexMember mirrors a member into the search index. Failures are logged
// and swallowed: search lags behind the store rather than failing writes.
func indexMember(ctx context.Context, es *elasticsearch.Client, index string, u *entity.User, logger *logrus.Logger) {
	if es == nil || index == "" {
		return
	}
	doc := map[string]any{
		"id":          u.ID,
		"email":       u.Email,
		"full_name":   u.FullName,
		"phone":       u.Phone,
		"product_ids": u.ProductIDs,
		"created_at":  u.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":  u.UpdatedAt.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: index, DocumentID: u.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, es)
	if err != nil {
		if logger != nil {
			logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
		}
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && logger != nil {
		logger.WithField("status", res.Status()).WithField("user_id", u.ID).Warn("es index response error")
	}
}

// deleteMemberIndex removes a member document after an admin delete.
func deleteMemberIndex(ctx context.Context, es *elasticsearch.Client, index, userID string, logger *logrus.Logger) {
	if es == nil || index == "" {
		return
	}
	req := esapi.DeleteRequest{Index: index, DocumentID: userID}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, es)
	if err != nil {
		if logger != nil {
			logger.WithError(err).WithField("user_id", userID).Warn("es delete failed")
		}
		return
	}
	_ = res.Body.Close()
}
