package push

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/gatling-contrib/prombridge/internal/bridge/configuration"
)

// Client ships registry snapshots to a remote push-based collector.
type Client interface {
	Push(gatherer prometheus.Gatherer, groupingKey map[string]string) error
	Delete(groupingKey map[string]string) error
}

// PushgatewayClient implements Client against a Prometheus Pushgateway.
// Pushes use add semantics so series pushed by other jobs under the same
// grouping key are left untouched.
type PushgatewayClient struct {
	url      string
	job      string
	user     string
	password string
}

func NewPushgatewayClient(settings configuration.Settings) (*PushgatewayClient, error) {
	target := settings.Url
	if !strings.Contains(target, "://") {
		target = "http://" + target
	}
	if _, err := url.ParseRequestURI(target); err != nil {
		return nil, errors.Wrapf(err, "invalid pushgateway url %q", settings.Url)
	}
	return &PushgatewayClient{
		url:      target,
		job:      settings.Job,
		user:     settings.User,
		password: settings.Password,
	}, nil
}

func (c *PushgatewayClient) Push(gatherer prometheus.Gatherer, groupingKey map[string]string) error {
	return errors.Wrap(c.pusher(groupingKey).Gatherer(gatherer).Add(), "failed to push metrics")
}

func (c *PushgatewayClient) Delete(groupingKey map[string]string) error {
	return errors.Wrap(c.pusher(groupingKey).Delete(), "failed to delete metrics")
}

func (c *PushgatewayClient) pusher(groupingKey map[string]string) *push.Pusher {
	pusher := push.New(c.url, c.job)
	for name, value := range groupingKey {
		pusher = pusher.Grouping(name, value)
	}
	if c.user != "" {
		pusher = pusher.BasicAuth(c.user, c.password)
	}
	return pusher
}
