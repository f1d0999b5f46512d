package ws

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tagforge/tagsync/cmd/tagsync/models"
	"github.com/tagforge/tagsync/cmd/tagsync/stparse"
	"github.com/tagforge/tagsync/common/logger"
)

func testLogger() *logger.Logger {
	return logger.New("error", "json")
}

type fakeSyncer struct {
	mu     sync.Mutex
	calls  []string // stCode per call
	result []models.Tag
	err    error
}

func (f *fakeSyncer) Reconcile(ctx context.Context, userID, projectID string, parsed []stparse.RawTag) ([]models.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := ""
	if len(parsed) > 0 {
		name = parsed[0].Name
	}
	f.calls = append(f.calls, name)
	return f.result, f.err
}

func (f *fakeSyncer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeSyncer) lastCall() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return ""
	}
	return f.calls[len(f.calls)-1]
}

type fakeLister struct {
	tags []models.Tag
}

func (f *fakeLister) ListByProject(ctx context.Context, projectID string) ([]models.Tag, error) {
	return f.tags, nil
}

type fakeAccess struct {
	owner map[string]string // projectID -> userID
}

func (f *fakeAccess) OwnedBy(ctx context.Context, projectID, userID string) (bool, error) {
	return f.owner[projectID] == userID, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakePublisher) PublishEvent(ctx context.Context, channel, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakePublisher) published() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

func testEngine(t *testing.T, syncer *fakeSyncer, pub Publisher) (*Engine, *Hub) {
	t.Helper()
	hub := NewHub(testLogger())
	engine := NewEngine(EngineConfig{
		Hub:    hub,
		Sync:   syncer,
		Tags:   &fakeLister{tags: []models.Tag{{Name: "Existing"}}},
		Access: &fakeAccess{owner: map[string]string{"p1": "u1", "p2": "u2"}},
		Parse: func(code string, vendor models.Vendor) []stparse.RawTag {
			return []stparse.RawTag{{Name: code, DataType: "BOOL"}}
		},
		Publisher:        pub,
		BroadcastChannel: "tagsync:updates",
		DefaultDebounce:  20 * time.Millisecond,
		MaxDebounce:      100 * time.Millisecond,
		Logger:           testLogger(),
	})
	return engine, hub
}

func newTestSession(hub *Hub, userID string) *Session {
	s := newSession(hub, nil, userID)
	hub.Register(s)
	return s
}

// readFrame pops one queued outbound frame, failing after a timeout
func readFrame(t *testing.T, s *Session) map[string]json.RawMessage {
	t.Helper()
	select {
	case data := <-s.send:
		var frame map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(data, &frame))
		return frame
	case <-time.After(500 * time.Millisecond):
		t.Fatal("no frame queued")
		return nil
	}
}

func frameType(t *testing.T, frame map[string]json.RawMessage) string {
	t.Helper()
	var typ string
	require.NoError(t, json.Unmarshal(frame["type"], &typ))
	return typ
}

func TestHandleMessage_InvalidJSON(t *testing.T) {
	engine, hub := testEngine(t, &fakeSyncer{}, nil)
	s := newTestSession(hub, "u1")

	engine.HandleMessage(s, []byte("{not json"))

	frame := readFrame(t, s)
	assert.Equal(t, MsgError, frameType(t, frame))
}

func TestHandleMessage_UnknownType(t *testing.T) {
	engine, hub := testEngine(t, &fakeSyncer{}, nil)
	s := newTestSession(hub, "u1")

	engine.HandleMessage(s, []byte(`{"type":"bogus"}`))

	frame := readFrame(t, s)
	assert.Equal(t, MsgError, frameType(t, frame))
	assert.Contains(t, string(frame["message"]), "unknown message type")
}

func TestHandleMessage_Ping(t *testing.T) {
	engine, hub := testEngine(t, &fakeSyncer{}, nil)
	s := newTestSession(hub, "u1")

	engine.HandleMessage(s, []byte(`{"type":"ping"}`))

	frame := readFrame(t, s)
	assert.Equal(t, MsgPong, frameType(t, frame))
}

func TestSubscribe_DeliversSnapshot(t *testing.T) {
	engine, hub := testEngine(t, &fakeSyncer{}, nil)
	s := newTestSession(hub, "u1")

	engine.HandleMessage(s, []byte(`{"type":"subscribe","projectId":"p1"}`))

	assert.Equal(t, 1, hub.SubscriberCount("p1"))

	frame := readFrame(t, s)
	assert.Equal(t, MsgTagsUpdated, frameType(t, frame))
	assert.Contains(t, string(frame["tags"]), "Existing")
}

func TestSubscribe_AccessDenied(t *testing.T) {
	engine, hub := testEngine(t, &fakeSyncer{}, nil)
	s := newTestSession(hub, "u1")

	engine.HandleMessage(s, []byte(`{"type":"subscribe","projectId":"p2"}`))

	assert.Equal(t, 0, hub.SubscriberCount("p2"))
	frame := readFrame(t, s)
	assert.Equal(t, MsgError, frameType(t, frame))
	assert.Contains(t, string(frame["message"]), "access denied")
}

func TestSubscribe_RequiresProject(t *testing.T) {
	engine, hub := testEngine(t, &fakeSyncer{}, nil)
	s := newTestSession(hub, "u1")

	engine.HandleMessage(s, []byte(`{"type":"subscribe"}`))

	frame := readFrame(t, s)
	assert.Equal(t, MsgError, frameType(t, frame))
}

func TestSyncTags_RequiresCode(t *testing.T) {
	syncer := &fakeSyncer{}
	engine, hub := testEngine(t, syncer, nil)
	s := newTestSession(hub, "u1")

	engine.HandleMessage(s, []byte(`{"type":"sync_tags","projectId":"p1"}`))

	frame := readFrame(t, s)
	assert.Equal(t, MsgError, frameType(t, frame))

	// nothing queued, nothing reconciled
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, syncer.callCount())
}

func TestSyncTags_DebounceCoalesces(t *testing.T) {
	syncer := &fakeSyncer{result: []models.Tag{{Name: "Final"}}}
	engine, hub := testEngine(t, syncer, nil)
	s := newTestSession(hub, "u1")
	engine.HandleMessage(s, []byte(`{"type":"subscribe","projectId":"p1"}`))
	readFrame(t, s) // initial snapshot

	// three rapid edits inside one debounce window
	engine.HandleMessage(s, []byte(`{"type":"sync_tags","projectId":"p1","stCode":"v1"}`))
	engine.HandleMessage(s, []byte(`{"type":"sync_tags","projectId":"p1","stCode":"v2"}`))
	engine.HandleMessage(s, []byte(`{"type":"sync_tags","projectId":"p1","stCode":"v3"}`))

	require.Eventually(t, func() bool { return syncer.callCount() > 0 },
		time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)

	// only the last edit reaches the reconciler
	assert.Equal(t, 1, syncer.callCount())
	assert.Equal(t, "v3", syncer.lastCall())

	// three acks, one broadcast
	types := drainFrameTypes(t, s)
	assert.Equal(t, []string{MsgSyncQueued, MsgSyncQueued, MsgSyncQueued, MsgTagsUpdated}, types)
}

func TestSyncTags_BroadcastFanOut(t *testing.T) {
	syncer := &fakeSyncer{result: []models.Tag{{Name: "Shared"}}}
	engine, hub := testEngine(t, syncer, nil)

	editor := newTestSession(hub, "u1")
	viewer := newTestSession(hub, "u1")
	other := newTestSession(hub, "u2")

	engine.HandleMessage(editor, []byte(`{"type":"subscribe","projectId":"p1"}`))
	engine.HandleMessage(viewer, []byte(`{"type":"subscribe","projectId":"p1"}`))
	engine.HandleMessage(other, []byte(`{"type":"subscribe","projectId":"p2"}`))
	readFrame(t, editor)
	readFrame(t, viewer)
	readFrame(t, other)

	engine.HandleMessage(editor, []byte(`{"type":"sync_tags","projectId":"p1","stCode":"edit"}`))
	require.Eventually(t, func() bool { return syncer.callCount() == 1 },
		time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	// both p1 subscribers get the update, including the editor
	editorTypes := drainFrameTypes(t, editor)
	assert.Equal(t, []string{MsgSyncQueued, MsgTagsUpdated}, editorTypes)
	viewerTypes := drainFrameTypes(t, viewer)
	assert.Equal(t, []string{MsgTagsUpdated}, viewerTypes)

	// the p2 subscriber sees nothing
	assert.Empty(t, drainFrameTypes(t, other))
}

func TestSyncTags_AccessDenied(t *testing.T) {
	syncer := &fakeSyncer{err: models.ErrAccessDenied}
	engine, hub := testEngine(t, syncer, nil)
	s := newTestSession(hub, "u1")

	engine.HandleMessage(s, []byte(`{"type":"sync_tags","projectId":"p1","stCode":"x"}`))
	require.Eventually(t, func() bool { return syncer.callCount() == 1 },
		time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	types := drainFrameTypes(t, s)
	require.Len(t, types, 2)
	assert.Equal(t, MsgSyncQueued, types[0])
	assert.Equal(t, MsgError, types[1])
}

func TestSyncTags_DebounceClamped(t *testing.T) {
	syncer := &fakeSyncer{}
	engine, hub := testEngine(t, syncer, nil)
	s := newTestSession(hub, "u1")

	// asks for 10 minutes, clamped to the 100ms maximum
	engine.HandleMessage(s, []byte(`{"type":"sync_tags","projectId":"p1","stCode":"x","debounceMs":600000}`))

	require.Eventually(t, func() bool { return syncer.callCount() == 1 },
		time.Second, 5*time.Millisecond)
}

func TestSyncTags_CrossInstancePublish(t *testing.T) {
	syncer := &fakeSyncer{result: []models.Tag{{Name: "Shared"}}}
	pub := &fakePublisher{}
	engine, hub := testEngine(t, syncer, pub)
	s := newTestSession(hub, "u1")

	engine.HandleMessage(s, []byte(`{"type":"sync_tags","projectId":"p1","stCode":"edit"}`))
	require.Eventually(t, func() bool { return len(pub.published()) == 1 },
		time.Second, 5*time.Millisecond)

	var env broadcastEnvelope
	require.NoError(t, json.Unmarshal([]byte(pub.published()[0]), &env))
	assert.Equal(t, engine.Origin(), env.Origin)
	assert.Equal(t, "p1", env.ProjectID)
	assert.Contains(t, string(env.Payload), MsgTagsUpdated)
}

func TestTagsUpdated_EmptyListStaysArray(t *testing.T) {
	data, err := json.Marshal(newTagsUpdated("p1", nil))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"tags":[]`)
}

// drainFrameTypes empties the session's send queue and returns the
// frame types in order
func drainFrameTypes(t *testing.T, s *Session) []string {
	t.Helper()
	var types []string
	for {
		select {
		case data := <-s.send:
			var frame struct {
				Type string `json:"type"`
			}
			require.NoError(t, json.Unmarshal(data, &frame))
			types = append(types, frame.Type)
		default:
			return types
		}
	}
}
