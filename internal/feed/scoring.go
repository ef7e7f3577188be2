package feed

import (
	"math"
	"time"
)

// Reason explains why a post was selected for the viewer's feed
type Reason string

const (
	ReasonFollowedTag     Reason = "followed_tag"
	ReasonSimilarInterest Reason = "similar_interest"
	ReasonFollowedUser    Reason = "followed_user"
	ReasonPopular         Reason = "popular"
)

// Ranking policy knobs. These are tuning parameters, not structural
// requirements; tests pin the current values.
const (
	// Phase 1: like-recency weighting
	likeHistoryLimit = 100
	likeDecayStep    = 0.04
	likeWeightFloor  = 0.2

	// Phase 3: candidate sourcing caps and windows
	maxTaggedPostIDs  = 200
	taggedWindowDays  = 14
	followedUserLimit = 50
	popularLimit      = 30

	// Phase 4: engagement weights
	commentWeight = 2.5
	reblogWeight  = 4.0

	// Phase 4: time decay and freshness
	decayHalfLifeHours = 168.0 // one week
	freshHours         = 6.0
	todayHours         = 24.0
	freshBonus         = 2.0
	todayBonus         = 1.5

	// Phase 4: source and tag bonuses
	followedTagBonus     = 4.0
	similarInterestBonus = 2.5
	followedUserBonus    = 2.0
	popularBonus         = 1.0
	tagBonusPerPoint     = 0.1
	followedTagRelevance = 10.0

	// Phase 4: creator boost and interaction dampening
	creatorBoostMax        = 2.0
	creatorBoostPerFollows = 20.0
	fromFollowedMultiplier = 1.5
	seenMultiplier         = 0.3

	// Phase 5: diversity and pagination
	maxPostsPerAuthor = 2
	hasMoreLookahead  = 10
)

// likeWeight returns the interest contribution of the i-th most recent like
// (0-indexed): linear decay from 1.0 with a floor, flat past the 20th like.
func likeWeight(i int) float64 {
	w := 1.0 - float64(i)*likeDecayStep
	if w < likeWeightFloor {
		return likeWeightFloor
	}
	return w
}

// reasonBonus maps a selection reason to its score multiplier
func reasonBonus(r Reason) float64 {
	switch r {
	case ReasonFollowedTag:
		return followedTagBonus
	case ReasonSimilarInterest:
		return similarInterestBonus
	case ReasonFollowedUser:
		return followedUserBonus
	default:
		return popularBonus
	}
}

// timeDecay returns the half-life decay multiplier for a post's age
func timeDecay(hoursOld float64) float64 {
	return math.Pow(0.5, hoursOld/decayHalfLifeHours)
}

// freshnessBonus rewards very recent posts
func freshnessBonus(hoursOld float64) float64 {
	switch {
	case hoursOld < freshHours:
		return freshBonus
	case hoursOld < todayHours:
		return todayBonus
	default:
		return 1.0
	}
}

// creatorBoost gives smaller creators a visibility edge, floored at 1
func creatorBoost(authorFollowers int) float64 {
	boost := creatorBoostMax - float64(authorFollowers)/creatorBoostPerFollows
	if boost < 1.0 {
		return 1.0
	}
	return boost
}

// scoreInputs carries everything the scoring formula consumes for one post
type scoreInputs struct {
	likes            int
	comments         int
	reblogs          int
	hoursOld         float64
	reason           Reason
	tagRelevance     float64
	authorFollowers  int
	fromFollowedUser bool
	viewerInteracted bool
}

// score computes the final ranking score for one candidate
func score(in scoreInputs) float64 {
	engagement := float64(in.likes) + float64(in.comments)*commentWeight + float64(in.reblogs)*reblogWeight

	s := (engagement + 1) *
		timeDecay(in.hoursOld) *
		freshnessBonus(in.hoursOld) *
		reasonBonus(in.reason) *
		(1 + in.tagRelevance*tagBonusPerPoint) *
		creatorBoost(in.authorFollowers)

	if in.fromFollowedUser {
		s *= fromFollowedMultiplier
	}

	// Already-interacted posts are deprioritized, not removed
	if in.viewerInteracted {
		s *= seenMultiplier
	}

	return s
}

// hoursSince returns the age of a timestamp in fractional hours
func hoursSince(t time.Time, now time.Time) float64 {
	h := now.Sub(t).Hours()
	if h < 0 {
		return 0
	}
	return h
}
