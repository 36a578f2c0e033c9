package server

import (
	"github.com/cfoust/mines/pkg/mmr"

	"github.com/sasha-s/go-deadlock"
)

const DEFAULT_RATING = 1200

type Rating struct {
	Rating int
	Wins   int
	Losses int
	Draws  int
}

// Stats keeps per-handle ratings for the lifetime of the process. Handles
// are ephemeral, so this is a leaderboard of connections, not of people;
// nothing survives a restart.
type Stats struct {
	elo *mmr.Elo

	mutex   deadlock.Mutex
	ratings map[string]*Rating
}

func NewStats() *Stats {
	return &Stats{
		elo:     mmr.NewElo(),
		ratings: make(map[string]*Rating),
	}
}

func (s *Stats) rating(reference string) *Rating {
	rating, ok := s.ratings[reference]
	if !ok {
		rating = &Rating{Rating: DEFAULT_RATING}
		s.ratings[reference] = rating
	}
	return rating
}

// Record folds a finished session into both players' ratings.
func (s *Stats) Record(result SessionResult) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	a := s.rating(result.Users[0].Reference())
	b := s.rating(result.Users[1].Reference())

	score := 0.5
	if !result.Outcome.Draw {
		if result.Outcome.Winner == 0 {
			score = 1
		} else {
			score = 0
		}
	}

	outcomeA, outcomeB := s.elo.Outcome(a.Rating, b.Rating, score)
	a.Rating = outcomeA.Rating
	b.Rating = outcomeB.Rating

	switch {
	case result.Outcome.Draw:
		a.Draws++
		b.Draws++
	case result.Outcome.Winner == 0:
		a.Wins++
		b.Losses++
	default:
		a.Losses++
		b.Wins++
	}
}

func (s *Stats) Get(reference string) Rating {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if rating, ok := s.ratings[reference]; ok {
		return *rating
	}

	return Rating{Rating: DEFAULT_RATING}
}
