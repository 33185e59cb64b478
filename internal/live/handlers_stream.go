package live

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/gin-gonic/gin"

	"github.com/firekit-dev/firekit/internal/auth"
	"github.com/firekit-dev/firekit/internal/logging"
	"github.com/firekit-dev/firekit/internal/metrics"
	"github.com/firekit-dev/firekit/internal/stores"
)

const keepAliveInterval = 15 * time.Second

type Document = map[string]interface{}

type docSource interface {
	Subscribe(run func(*Document)) func()
	ID() string
}

type collectionSource interface {
	Subscribe(run func([]stores.Item[Document])) func()
}

type Handler struct {
	access      *Access
	events      ProfileEvents
	metrics     metrics.Recorder
	docs        *registry[docSource]
	collections *registry[collectionSource]
}

// NewHandler streams Firestore stores backed by client. A nil client serves
// the missing-SDK fallback stores. Profile events are served when events is
// not nil.
func NewHandler(client *firestore.Client, access *Access, events ProfileEvents, recorder metrics.Recorder) *Handler {
	h := newHandler(access, recorder,
		func(path string) (docSource, error) {
			return stores.NewDocStore[Document](client, path, nil)
		},
		func(path string) (collectionSource, error) {
			return stores.NewCollectionStore[Document](client, path, nil)
		},
	)
	h.events = events
	return h
}

func newHandler(
	access *Access,
	recorder metrics.Recorder,
	newDoc func(string) (docSource, error),
	newCollection func(string) (collectionSource, error),
) *Handler {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Handler{
		access:      access,
		metrics:     recorder,
		docs:        newRegistry(newDoc),
		collections: newRegistry(newCollection),
	}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/doc/*path", h.StreamDocument)
	rg.GET("/collection/*path", h.StreamCollection)
	if h.events != nil {
		rg.GET("/profile", h.StreamProfile)
	}
}

type docEvent struct {
	ID   string    `json:"id"`
	Data *Document `json:"data"`
}

// StreamDocument sends a "snapshot" event with the document on every change.
// data is null while the document does not exist.
func (h *Handler) StreamDocument(c *gin.Context) {
	path, ok := h.checkPath(c)
	if !ok {
		return
	}

	store, err := h.docs.acquire(path)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer h.docs.release(path)

	h.metrics.LiveSubscriptionOpened("doc")
	defer h.metrics.LiveSubscriptionClosed("doc")

	id := store.ID()
	stream(c, store.Subscribe, func(v *Document) any {
		return docEvent{ID: id, Data: v}
	})
}

// StreamCollection sends a "snapshot" event with every document of the
// collection on each change.
func (h *Handler) StreamCollection(c *gin.Context) {
	path, ok := h.checkPath(c)
	if !ok {
		return
	}

	store, err := h.collections.acquire(path)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer h.collections.release(path)

	h.metrics.LiveSubscriptionOpened("collection")
	defer h.metrics.LiveSubscriptionClosed("collection")

	stream(c, store.Subscribe, func(v []stores.Item[Document]) any { return v })
}

func (h *Handler) checkPath(c *gin.Context) (string, bool) {
	path, err := h.access.Check(auth.UserFirebaseUID(c), c.Param("path"))
	switch {
	case errors.Is(err, ErrInvalidPath):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	case err != nil:
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return "", false
	}
	return path, true
}

// stream writes the store's values as Server-Sent Events until the client
// goes away. Slow clients only see the latest value.
func stream[T any](c *gin.Context, subscribe func(func(T)) func(), encode func(T) any) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	updates := make(chan T, 1)
	unsubscribe := subscribe(func(v T) {
		select {
		case updates <- v:
			return
		default:
		}
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- v:
		default:
		}
	})
	defer unsubscribe()

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // nginx: disable buffering
	c.Status(http.StatusOK)
	flusher.Flush()

	ctx := c.Request.Context()
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
			flusher.Flush()
		case v := <-updates:
			data, err := json.Marshal(encode(v))
			if err != nil {
				logging.NewLogger(ctx).LogError("live.encode", err)
				continue
			}
			fmt.Fprintf(c.Writer, "event: snapshot\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
