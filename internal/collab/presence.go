package collab

import (
	"hash/fnv"
	"slices"
	"sync"
)

var palette = []string{
	"#e6194b", "#3cb44b", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#9a6324",
}

// colorFor picks a stable highlight color for a user.
func colorFor(userID string) string {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return palette[h.Sum32()%uint32(len(palette))]
}

// PresenceManager tracks cursors and selections per connected client.
type PresenceManager struct {
	mu        sync.RWMutex
	presences map[string]*PresencePayload // clientID -> presence
}

func NewPresenceManager() *PresenceManager {
	return &PresenceManager{
		presences: make(map[string]*PresencePayload),
	}
}

func (pm *PresenceManager) Update(clientID string, p *PresencePayload) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.presences[clientID] = p
}

func (pm *PresenceManager) Remove(clientID string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	delete(pm.presences, clientID)
}

// Forget drops removed cells from every selection and reports whether any
// selection changed.
func (pm *PresenceManager) Forget(cellIDs []string) bool {
	if len(cellIDs) == 0 {
		return false
	}
	pm.mu.Lock()
	defer pm.mu.Unlock()

	changed := false
	for clientID, p := range pm.presences {
		kept := slices.DeleteFunc(slices.Clone(p.Selection), func(id string) bool {
			return slices.Contains(cellIDs, id)
		})
		if len(kept) != len(p.Selection) {
			next := *p
			next.Selection = kept
			pm.presences[clientID] = &next
			changed = true
		}
	}
	return changed
}

func (pm *PresenceManager) GetAll() map[string]*PresencePayload {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	result := make(map[string]*PresencePayload, len(pm.presences))
	for k, v := range pm.presences {
		result[k] = v
	}
	return result
}

func (pm *PresenceManager) StateMessage() *Message {
	all := pm.GetAll()
	if len(all) == 0 {
		return nil
	}
	return newMessage(TypePresenceState, PresenceStatePayload{Presences: all})
}
