package reconcile

import "github.com/cipher-shad0w/google-chat-cli/internal/models"

// event is anything the control loop consumes. Requests come from public
// methods; results come from background goroutines.
type event interface {
	isEvent()
}

type loadSpacesRequest struct{}

type selectSpaceRequest struct {
	spaceID string
}

type pollRequest struct{}

type hardRefreshRequest struct{}

type phasesRequest struct {
	reply chan Phases
}

type mutationKind string

const (
	mutationSend   mutationKind = "send"
	mutationEdit   mutationKind = "edit"
	mutationDelete mutationKind = "delete"
	mutationReact  mutationKind = "react"
)

type mutationRequest struct {
	kind        mutationKind
	messageName string
	text        string
	emoji       string
}

// Results carry the generation of the load that produced them. Only the
// latest generation is applied.

type spacesCached struct {
	gen       int
	spaces    []models.Space
	found     bool
	unread    models.UnreadSet
	hasUnread bool
}

type spacesFetched struct {
	gen    int
	spaces []models.Space
	err    error
}

type messagesCached struct {
	gen      int
	spaceID  string
	messages []models.Message
	names    map[string]string
	found    bool
}

type messagesFetched struct {
	gen      int
	spaceID  string
	messages []models.Message
	names    map[string]string
	err      error
}

type unreadProbed struct {
	seq int
	set models.UnreadSet
}

type readStateSubmitted struct {
	spaceID   string
	createdAt string
	err       error
}

type mutationDone struct {
	kind    mutationKind
	spaceID string
	err     error
}

type cacheCleared struct{}

func (loadSpacesRequest) isEvent()  {}
func (selectSpaceRequest) isEvent() {}
func (pollRequest) isEvent()        {}
func (hardRefreshRequest) isEvent() {}
func (phasesRequest) isEvent()      {}
func (mutationRequest) isEvent()    {}
func (spacesCached) isEvent()       {}
func (spacesFetched) isEvent()      {}
func (messagesCached) isEvent()     {}
func (messagesFetched) isEvent()    {}
func (unreadProbed) isEvent()       {}
func (readStateSubmitted) isEvent() {}
func (mutationDone) isEvent()       {}
func (cacheCleared) isEvent()       {}
