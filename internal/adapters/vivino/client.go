// Package vivino fetches a user's historical wine ratings from their public
// profile. Usernames resolve to a numeric user id on the profile page; the
// ratings themselves come from the paged activity feed.
package vivino

import (
	"context"
	crand "crypto/rand"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"ovino/internal/adapters/observability"
	"ovino/internal/domain"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:66.0) Gecko/20100101 Firefox/66.0"

	// The activity feed stops yielding ids well before this; the cap only
	// guards against a feed that never drains.
	maxActivityPages = 100

	maxBodyBytes = 4 << 20
)

var (
	userIDRe = regexp.MustCompile(`vivino://\?user_id=(\d+)`)
	wineIDRe = regexp.MustCompile(`/w/(\d+)`)
	ratingRe = regexp.MustCompile(`(\d\.\d)★`)
)

type Client struct {
	base string
	hc   *http.Client
	rl   *rate.Limiter
}

func New(base string, rps int) *Client {
	if rps <= 0 {
		rps = 2
	}
	return &Client{
		base: base,
		hc:   &http.Client{Timeout: 20 * time.Second},
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// FetchUserRatings resolves username -> user id, then walks the activity
// pages accumulating {item id: star rating}. An unknown profile returns an
// empty map, not an error; transport failures bubble up.
func (c *Client) FetchUserRatings(ctx context.Context, username string) (map[int64]float64, error) {
	body, status, err := c.get(ctx, fmt.Sprintf("%s/users/%s", c.base, username), false)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return map[int64]float64{}, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("vivino: profile page status %d", status)
	}

	m := userIDRe.FindSubmatch(body)
	if m == nil {
		// Page rendered but carries no user id; treat as no profile data.
		return map[int64]float64{}, nil
	}
	userID := string(m[1])

	out := map[int64]float64{}
	for page := 1; page < maxActivityPages; page++ {
		ids, ratings, err := c.activityPage(ctx, userID, page)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			break
		}
		n := len(ids)
		if len(ratings) < n {
			n = len(ratings)
		}
		for i := 0; i < n; i++ {
			if _, seen := out[ids[i]]; !seen {
				out[ids[i]] = ratings[i]
			}
		}
	}
	return out, nil
}

// activityPage scrapes one page of the top-ratings feed. Wine ids repeat
// within a page (thumbnail + detail links); only the first occurrence of
// each id pairs with a rating.
func (c *Client) activityPage(ctx context.Context, userID string, page int) ([]int64, []float64, error) {
	url := fmt.Sprintf("%s/users/%s/activities?page=%d&order=top-ratings", c.base, userID, page)
	body, status, err := c.get(ctx, url, true)
	if err != nil {
		return nil, nil, err
	}
	if status != http.StatusOK {
		return nil, nil, nil // feed exhausted or gone; stop paging
	}

	seen := map[int64]struct{}{}
	var ids []int64
	for _, m := range wineIDRe.FindAllSubmatch(body, -1) {
		id, err := strconv.ParseInt(string(m[1]), 10, 64)
		if err != nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	var ratings []float64
	for _, m := range ratingRe.FindAllSubmatch(body, -1) {
		v, err := strconv.ParseFloat(string(m[1]), 64)
		if err != nil {
			continue
		}
		ratings = append(ratings, v)
	}
	return ids, ratings, nil
}

// get performs a rate-limited GET with retries on 429/5xx. xhr adds the
// headers the activity endpoint requires.
func (c *Client) get(ctx context.Context, url string, xhr bool) ([]byte, int, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return nil, 0, err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, 0, err
		}
		req.Header.Set("User-Agent", userAgent)
		if xhr {
			req.Header.Set("X-Requested-With", "XMLHttpRequest")
			req.Header.Set("Accept", "text/javascript, application/javascript, */*; q=0.01")
		}

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, 0, ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			return nil, 0, lastErr
		}

		switch resp.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			observability.ObserveExternal("vivino", "get", resp.StatusCode, time.Since(start))
			lastErr = fmt.Errorf("vivino: remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			return nil, 0, lastErr
		default:
			body, rerr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
			resp.Body.Close()
			observability.ObserveExternal("vivino", "get", resp.StatusCode, time.Since(start))
			if rerr != nil {
				return nil, 0, rerr
			}
			return body, resp.StatusCode, nil
		}
	}
	return nil, 0, lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// backoff doubles each attempt (200ms, 400ms, 800ms...) with up to +50%
// jitter to avoid thundering herds.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}

var _ domain.ProfileClient = (*Client)(nil)
