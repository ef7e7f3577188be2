package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLikeWeight(t *testing.T) {
	testCases := []struct {
		name     string
		index    int
		expected float64
	}{
		{"most recent like", 0, 1.0},
		{"tenth like", 10, 0.6},
		{"twentieth like", 20, 0.2},
		{"floor applies past twenty", 50, 0.2},
		{"last of the history window", 99, 0.2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, likeWeight(tc.index), 1e-9)
		})
	}
}

func TestTimeDecayHalvesEveryWeek(t *testing.T) {
	assert.InDelta(t, 1.0, timeDecay(0), 1e-9)
	assert.InDelta(t, 0.5, timeDecay(168), 1e-9)
	assert.InDelta(t, 0.25, timeDecay(336), 1e-9)
}

func TestTimeDecayMonotonic(t *testing.T) {
	prev := timeDecay(0)
	for hours := 1.0; hours <= 720; hours++ {
		cur := timeDecay(hours)
		assert.Less(t, cur, prev, "decay must strictly decrease at %v hours", hours)
		prev = cur
	}
}

func TestFreshnessBonus(t *testing.T) {
	testCases := []struct {
		name     string
		hoursOld float64
		expected float64
	}{
		{"brand new", 0, 2.0},
		{"five hours", 5, 2.0},
		{"six hours exactly", 6, 1.5},
		{"half a day", 12, 1.5},
		{"one day exactly", 24, 1.0},
		{"a week", 168, 1.0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, freshnessBonus(tc.hoursOld))
		})
	}
}

func TestReasonBonusOrdering(t *testing.T) {
	assert.Equal(t, 4.0, reasonBonus(ReasonFollowedTag))
	assert.Equal(t, 2.5, reasonBonus(ReasonSimilarInterest))
	assert.Equal(t, 2.0, reasonBonus(ReasonFollowedUser))
	assert.Equal(t, 1.0, reasonBonus(ReasonPopular))

	// the hierarchy must hold even if constants drift
	assert.Greater(t, reasonBonus(ReasonFollowedTag), reasonBonus(ReasonSimilarInterest))
	assert.Greater(t, reasonBonus(ReasonSimilarInterest), reasonBonus(ReasonFollowedUser))
	assert.Greater(t, reasonBonus(ReasonFollowedUser), reasonBonus(ReasonPopular))
}

func TestCreatorBoost(t *testing.T) {
	testCases := []struct {
		name      string
		followers int
		expected  float64
	}{
		{"no followers gets full boost", 0, 2.0},
		{"ten followers", 10, 1.5},
		{"twenty followers is neutral", 20, 1.0},
		{"large accounts never penalized", 10000, 1.0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, creatorBoost(tc.followers), 1e-9)
		})
	}
}

func TestScoreBaseCase(t *testing.T) {
	// Brand-new popular post, no engagement, neutral author: the score is
	// exactly base * freshBonus * popularBonus = 1 * 2 * 1.
	got := score(scoreInputs{
		hoursOld:        0,
		reason:          ReasonPopular,
		authorFollowers: 20,
	})
	assert.InDelta(t, 2.0, got, 1e-9)
}

func TestScoreEngagementWeights(t *testing.T) {
	base := score(scoreInputs{hoursOld: 0, reason: ReasonPopular, authorFollowers: 20})

	withLike := score(scoreInputs{likes: 1, hoursOld: 0, reason: ReasonPopular, authorFollowers: 20})
	withComment := score(scoreInputs{comments: 1, hoursOld: 0, reason: ReasonPopular, authorFollowers: 20})
	withReblog := score(scoreInputs{reblogs: 1, hoursOld: 0, reason: ReasonPopular, authorFollowers: 20})

	assert.Greater(t, withLike, base)
	assert.Greater(t, withComment, withLike, "a comment must outweigh a like")
	assert.Greater(t, withReblog, withComment, "a reblog must outweigh a comment")
}

func TestScoreViewerInteractionDampens(t *testing.T) {
	in := scoreInputs{
		likes:           10,
		hoursOld:        2,
		reason:          ReasonFollowedUser,
		authorFollowers: 50,
	}
	fresh := score(in)

	in.viewerInteracted = true
	seen := score(in)

	assert.InDelta(t, fresh*seenMultiplier, seen, 1e-9)
	assert.Less(t, seen, fresh)
}

func TestScoreFollowedUserMultiplier(t *testing.T) {
	in := scoreInputs{
		likes:           3,
		hoursOld:        10,
		reason:          ReasonFollowedTag,
		tagRelevance:    followedTagRelevance,
		authorFollowers: 100,
	}
	stranger := score(in)

	in.fromFollowedUser = true
	followed := score(in)

	assert.InDelta(t, stranger*fromFollowedMultiplier, followed, 1e-9)
}

func TestScoreTagRelevanceBonus(t *testing.T) {
	in := scoreInputs{hoursOld: 0, reason: ReasonSimilarInterest, authorFollowers: 20}
	weak := score(in)

	in.tagRelevance = 5.0
	strong := score(in)

	// 1 + 0.1*5 = 1.5x
	assert.InDelta(t, weak*1.5, strong, 1e-9)
}

func TestScoreOlderPostScoresLower(t *testing.T) {
	newer := score(scoreInputs{likes: 5, hoursOld: 1, reason: ReasonPopular, authorFollowers: 20})
	older := score(scoreInputs{likes: 5, hoursOld: 240, reason: ReasonPopular, authorFollowers: 20})
	assert.Greater(t, newer, older)
}

func TestHoursSince(t *testing.T) {
	now := time.Now()
	assert.InDelta(t, 0, hoursSince(now, now), 1e-9)
	assert.InDelta(t, 3, hoursSince(now.Add(-3*time.Hour), now), 1e-9)
	// clock skew must not produce a negative age
	assert.Equal(t, 0.0, hoursSince(now.Add(time.Hour), now))
}
