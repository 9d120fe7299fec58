package memory

import (
	"time"

	"aayush-bot/pkg/store"

	"github.com/patrickmn/go-cache"
)

// TurnRepository holds the open streaming turn per session id. Entries are
// written when a turn opens and deleted when it finalizes; the expiration is
// a safety net so an orphaned turn can never wedge a session forever.
type TurnRepository struct {
	cache *cache.Cache
}

func NewTurnRepository() *TurnRepository {
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &TurnRepository{
		cache: c,
	}
}

func (r *TurnRepository) Save(turn *store.Turn) {
	r.cache.Set(turn.SessionID, turn, cache.DefaultExpiration)
}

func (r *TurnRepository) Get(sessionID string) (*store.Turn, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*store.Turn), true
	}
	return nil, false
}

func (r *TurnRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}
