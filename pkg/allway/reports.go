package allway

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

// Report metrics understood by the platform's v2 reports endpoint.
const (
	MetricConversationsCount = "conversations_count"
	MetricIncomingMessages   = "incoming_messages_count"
	MetricOutgoingMessages   = "outgoing_messages_count"
)

// Report scopes.
const (
	ReportTypeAccount = "account"
	ReportTypeInbox   = "inbox"
	ReportTypeLabel   = "label"
)

// ReportSum queries the v2 reports endpoint for one metric over [since, until]
// and sums the per-day values. typ scopes the metric (account, inbox, label);
// id is the scoped entity's id and is ignored for account scope.
func (c *Client) ReportSum(ctx context.Context, acc *Account, metric, typ string, id int64, since, until time.Time) (int64, error) {
	query := map[string]string{
		"metric": metric,
		"type":   typ,
		"since":  strconv.FormatInt(since.Unix(), 10),
		"until":  strconv.FormatInt(until.Unix(), 10),
	}
	if typ != ReportTypeAccount {
		query["id"] = strconv.FormatInt(id, 10)
	}

	url := acc.ReportsAPIURL() + "/accounts/" + itoa(acc.AccountID) + "/reports"
	body, err := c.do(ctx, http.MethodGet, url, privateHeaders(acc), query, nil)
	if err != nil {
		return 0, err
	}

	var total int64
	gjson.ParseBytes(body).ForEach(func(_, v gjson.Result) bool {
		total += v.Get("value").Int()
		return true
	})
	return total, nil
}
