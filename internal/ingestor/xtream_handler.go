package ingestor

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jmylchreest/m3udash/internal/metrics"
	"github.com/jmylchreest/m3udash/internal/models"
	"github.com/jmylchreest/m3udash/pkg/httpclient"
	"github.com/jmylchreest/m3udash/pkg/m3u"
	"github.com/jmylchreest/m3udash/pkg/xtream"
)

// Translation defaults.
const (
	// DefaultOutputType is the stream container used when none is requested.
	DefaultOutputType = xtream.DefaultExtension

	// UndefinedCategory is the group of streams whose category is unknown.
	UndefinedCategory = "Undefined Category"

	streamNamePrefix = "Stream "
	unknownStreamID  = "Unknown"
	liveDuration     = -1
)

// TranslateRequest identifies an Xtream panel account.
type TranslateRequest struct {
	PanelURL   string
	Username   string
	Password   string
	OutputType string
}

// XtreamHandler translates Xtream Codes live stream listings into M3U.
type XtreamHandler struct {
	handlerBase
	categoriesTimeout time.Duration
	streamsTimeout    time.Duration
	writerOptions     m3u.WriterOptions
}

// NewXtreamHandler creates a new Xtream handler with default settings.
func NewXtreamHandler(fetcher Fetcher) *XtreamHandler {
	return &XtreamHandler{
		handlerBase:       handlerBase{fetcher: fetcher},
		categoriesTimeout: xtream.DefaultCategoriesTimeout,
		streamsTimeout:    xtream.DefaultStreamsTimeout,
	}
}

// WithLogger sets a structured logger for the handler.
func (h *XtreamHandler) WithLogger(logger *slog.Logger) *XtreamHandler {
	h.logger = logger
	return h
}

// WithMetrics sets the metrics recorder.
func (h *XtreamHandler) WithMetrics(m *metrics.Metrics) *XtreamHandler {
	h.metrics = m
	return h
}

// WithTimeouts sets the categories and streams call timeouts. Non-positive
// values keep the defaults.
func (h *XtreamHandler) WithTimeouts(categories, streams time.Duration) *XtreamHandler {
	if categories > 0 {
		h.categoriesTimeout = categories
	}
	if streams > 0 {
		h.streamsTimeout = streams
	}
	return h
}

// WithWriterOptions sets how the resulting document is rendered.
func (h *XtreamHandler) WithWriterOptions(opts m3u.WriterOptions) *XtreamHandler {
	h.writerOptions = opts
	return h
}

// Validate checks that the request names a panel and credentials.
func (h *XtreamHandler) Validate(req TranslateRequest) error {
	if req.PanelURL == "" || req.Username == "" || req.Password == "" {
		return models.NewError(models.KindMissingField, models.MsgXtreamFields)
	}
	return nil
}

// NormalizeOutputType lower-cases the requested container, defaulting to ts.
func NormalizeOutputType(outputType string) string {
	outputType = strings.ToLower(strings.TrimSpace(outputType))
	if outputType == "" {
		return DefaultOutputType
	}
	return outputType
}

// Translate fetches the panel's live categories and streams concurrently and
// builds a playlist with one entry per stream, in panel order. A failed
// categories call degrades to an empty category map; a failed streams call
// fails the translation. Errors are *models.Error.
func (h *XtreamHandler) Translate(ctx context.Context, req TranslateRequest) (doc *m3u.Document, err error) {
	defer func() {
		outcome, channels := metrics.OutcomeSuccess, 0
		if err != nil {
			outcome = string(models.KindOf(err))
		} else {
			channels = doc.Len()
		}
		h.metrics.ObserveTranslation(outcome, channels)
	}()

	if err := h.Validate(req); err != nil {
		h.log().Warn("xtream request rejected", slog.String("error", err.Error()))
		return nil, err
	}

	extension := NormalizeOutputType(req.OutputType)
	client := xtream.NewClient(h.fetcher, req.PanelURL, req.Username, req.Password,
		xtream.WithCategoriesTimeout(h.categoriesTimeout),
		xtream.WithStreamsTimeout(h.streamsTimeout),
	)
	logger := h.log().With(
		slog.String("panel", req.PanelURL),
		slog.String("api_endpoint", client.APIEndpoint()),
	)

	var (
		categories xtream.CategoryMap
		streams    []xtream.Stream
		malformed  []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("fetching xtream categories")
		var catErr error
		categories, catErr = client.GetLiveCategories(gctx)
		if catErr != nil {
			logger.Warn("categories unavailable, continuing without them",
				slog.String("error", catErr.Error()))
			categories = xtream.CategoryMap{}
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("fetching xtream live streams")
		var streamErr error
		streams, malformed, streamErr = client.GetLiveStreams(gctx)
		return streamErr
	})

	if err := g.Wait(); err != nil {
		classified := streamsError(err)
		logger.Error("xtream translation failed",
			slog.String("kind", string(classified.Kind)),
			slog.String("error", err.Error()),
		)
		return nil, classified
	}

	for _, entry := range malformed {
		logger.Warn("skipping malformed stream entry", slog.String("entry", entry))
	}

	doc = &m3u.Document{Options: h.writerOptions}
	for _, stream := range streams {
		entry := h.streamToEntry(stream, categories, client, extension)
		if entry.URL == "" {
			logger.Warn("stream missing stream_id, cannot form URL", slog.String("name", entry.Title))
		}
		doc.Append(entry)
	}

	logger.Info("xtream translation complete",
		slog.Int("channels", doc.Len()),
		slog.Int("categories", len(categories)),
		slog.Int("skipped", len(malformed)),
	)
	return doc, nil
}

// streamToEntry converts an Xtream stream to a playlist entry.
func (h *XtreamHandler) streamToEntry(stream xtream.Stream, categories xtream.CategoryMap, client *xtream.Client, extension string) *m3u.Entry {
	name := stream.Name.Or(streamNamePrefix + stream.StreamID.Or(unknownStreamID))

	group := UndefinedCategory
	if stream.CategoryID.Present {
		if title := categories[stream.CategoryID.Text]; title != "" {
			group = title
		}
	}

	entry := &m3u.Entry{
		Duration:   liveDuration,
		TvgID:      stream.EPGChannelID.Text,
		TvgName:    name,
		TvgLogo:    stream.StreamIcon.Text,
		GroupTitle: group,
		Title:      name,
	}
	if stream.StreamID.Present {
		entry.URL = client.LiveStreamURL(stream.StreamID.Text, extension)
	}
	return entry
}

// streamsError maps a failed streams call to a classified error.
func streamsError(err error) *models.Error {
	var fetchErr *xtream.FetchError
	if errors.As(err, &fetchErr) {
		result := fetchErr.Result
		switch result.Kind {
		case httpclient.ResultTimeout:
			return models.WrapError(models.KindUpstreamTimeout, models.MsgPanelTimeout, err)
		case httpclient.ResultHTTPError:
			var e *models.Error
			switch result.Status {
			case http.StatusUnauthorized:
				e = models.WrapError(models.KindPanelUnauthorized, models.MsgPanelUnauthorized, err)
			case http.StatusForbidden:
				e = models.WrapError(models.KindPanelForbidden, models.MsgPanelForbidden, err)
			default:
				e = models.WrapError(models.KindUpstreamHTTPError, models.PanelHTTPErrorMessage(result.Status), err)
			}
			e.Status = result.Status
			return e
		default:
			return models.WrapError(models.KindUpstreamUnreachable, models.PanelUnreachableMessage(result.Message), err)
		}
	}

	switch {
	case errors.Is(err, xtream.ErrInvalidJSON):
		return models.WrapError(models.KindPanelResponseInvalid, models.MsgPanelInvalidJSON, err)
	case errors.Is(err, xtream.ErrNullResponse), errors.Is(err, xtream.ErrUnexpectedShape):
		return models.WrapError(models.KindNoStreamsFound, models.MsgNoStreamsFound, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return models.WrapError(models.KindUpstreamTimeout, models.MsgPanelTimeout, err)
	default:
		return models.WrapError(models.KindInternal, models.MsgTranslateFailed, err)
	}
}
