package routes

import (
	"context"
	"strconv"
	"strings"

	"github.com/sdfgeoff/ndscore/internal/httpd"
	"github.com/sdfgeoff/ndscore/internal/router"
)

// defaultIndexPageSize is used when the configured page size is unusable.
const defaultIndexPageSize = 20

// Index returns the thread listing route.
func Index(pageSize int) []router.Route {
	if pageSize <= 0 {
		pageSize = defaultIndexPageSize
	}
	return []router.Route{
		router.NewRoute("/index.html", func(ctx context.Context, rc *router.RequestContext) (httpd.Response, error) {
			return handleThreadIndex(ctx, rc, pageSize)
		}),
	}
}

func handleThreadIndex(ctx context.Context, rc *router.RequestContext, pageSize int) (httpd.Response, error) {
	pageNum := 0
	if raw := rc.Request.Query["page"]; raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			pageNum = parsed
		}
	}

	threads, err := rc.Store.Threads(ctx, pageSize, pageNum*pageSize)
	if err != nil {
		return httpd.Response{}, err
	}

	summaries := make([]string, 0, len(threads))
	for _, thread := range threads {
		summaries = append(summaries, fill(fragment("thread_summary.html"),
			"THREAD_ID", strconv.FormatInt(thread.ID, 10),
			"TITLE", escape(thread.Title),
			"AUTHOR", escape(thread.AuthorName),
			"DATE", thread.CreatedAt.Format(displayTimeLayout),
		))
	}
	overview := strings.Join(summaries, "\n")
	if len(threads) == 0 {
		overview = "No threads yet."
	}

	newThreadArea := ""
	if rc.Session != nil {
		newThreadArea = fragment("new_thread_button.html")
	}

	content := fill(fragment("thread_index.html"),
		"THREAD_OVERVIEW", overview,
		"NEW_THREAD_AREA", newThreadArea,
	)
	return page(200, wrapContent(rc, "Home", content)), nil
}
