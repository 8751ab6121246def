package merge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"danmu/internal/catalog"
	"danmu/internal/config"
	"danmu/internal/danmaku"
	"danmu/internal/locator"
	"danmu/internal/provider"
)

var episodeNames = []string{
	"出发", "相遇", "黄昏", "誓言", "归途", "风暴",
	"灯塔", "回声", "星海", "别离", "重逢", "终章",
}

type fakeProvider struct {
	name     string
	abbr     string
	comments map[string][]danmaku.Raw
	calls    atomic.Int32
	gate     chan struct{}
	fail     bool
}

func (f *fakeProvider) Name() string         { return f.name }
func (f *fakeProvider) Abbreviation() string { return f.abbr }

func (f *fakeProvider) Search(context.Context, string) ([]provider.RawResult, error) {
	return nil, nil
}

func (f *fakeProvider) GetEpisodes(context.Context, string) ([]provider.RawEpisode, error) {
	return nil, nil
}

func (f *fakeProvider) GetEpisodeDanmu(ctx context.Context, episodeID string) ([]provider.RawComment, error) {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fail {
		return nil, errors.New("upstream down")
	}
	out := make([]provider.RawComment, 0)
	for _, c := range f.comments[episodeID] {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeProvider) FormatComments(raw []provider.RawComment) []danmaku.Raw {
	out := make([]danmaku.Raw, 0, len(raw))
	for _, item := range raw {
		out = append(out, item.(danmaku.Raw))
	}
	return out
}

func entry(source, id, title string, start time.Time, titles []string) *catalog.Entry {
	e := &catalog.Entry{
		ID:              catalog.EntryID(source, id),
		Title:           title,
		TypeDescription: "TV动画",
		Source:          source,
		StartDate:       start,
		EpisodeCount:    len(titles),
	}
	for i, t := range titles {
		e.Episodes = append(e.Episodes, catalog.EpisodeLink{
			DisplayName: t,
			Locator:     fmt.Sprintf("%s:%s-%d", source, id, i+1),
		})
	}
	return e
}

func numbered(n int) []string {
	titles := make([]string, n)
	for i := range titles {
		titles[i] = fmt.Sprintf("第%d话 %s", i+1, episodeNames[i%len(episodeNames)])
	}
	return titles
}

func newOrchestrator(t *testing.T, providers ...provider.Provider) *Orchestrator {
	t.Helper()
	registry, err := provider.NewRegistry(providers...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	normalizer := danmaku.NewNormalizer(danmaku.Options{GroupMinute: danmaku.GroupExact}, nil)
	return New(registry, normalizer)
}

var spring2020 = time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC)

func TestFindSecondaryMatch(t *testing.T) {
	primary := entry("a", "1", "魔法少女的日常", spring2020, numbered(12))
	close := entry("b", "1", "魔法少女的日常", spring2020.AddDate(0, 0, 3), numbered(12))
	sameYear := entry("b", "2", "魔法少女的日常", spring2020.AddDate(0, 5, 0), numbered(12))
	farAway := entry("b", "3", "魔法少女的日常", spring2020.AddDate(3, 0, 0), numbered(12))
	movie := entry("b", "4", "魔法少女的日常 剧场版", spring2020, numbered(1))
	movie.TypeDescription = "剧场版"
	unrelated := entry("b", "5", "宇宙战舰", spring2020, numbered(12))

	got, score := FindSecondaryMatch(primary, []*catalog.Entry{unrelated, sameYear, farAway, movie, close})
	if got != close {
		t.Fatalf("expected closest dated candidate, got %+v (score %.2f)", got, score)
	}
	if score < 1.09 || score > 1.11 {
		t.Fatalf("expected exact title plus close date bonus, got %.3f", score)
	}

	evaluated := EvaluateCandidates(primary, []*catalog.Entry{farAway, movie, sameYear})
	if evaluated[0].Skipped == "" || evaluated[1].Skipped == "" {
		t.Fatalf("expected far and movie candidates skipped: %+v", evaluated)
	}
	if evaluated[2].Skipped != "" || evaluated[2].Score < 1.04 || evaluated[2].Score > 1.06 {
		t.Fatalf("expected same-year bonus: %+v", evaluated[2])
	}

	if got, _ := FindSecondaryMatch(primary, []*catalog.Entry{unrelated}); got != nil {
		t.Fatalf("expected no match below threshold, got %+v", got)
	}
}

func TestFindSecondaryMatchSeasons(t *testing.T) {
	primary := entry("a", "1", "进击的巨人 第二季", spring2020, numbered(12))
	season3 := entry("b", "1", "进击的巨人 第三季", spring2020, numbered(12))
	season2 := entry("b", "2", "进击的巨人 第2季", spring2020, numbered(12))
	if got, _ := FindSecondaryMatch(primary, []*catalog.Entry{season3, season2}); got != season2 {
		t.Fatalf("expected season 2 match, got %+v", got)
	}
}

func TestApplyMergeLogicWithOffset(t *testing.T) {
	o := newOrchestrator(t, &fakeProvider{name: "a", abbr: "A"}, &fakeProvider{name: "b", abbr: "B"})
	titles := numbered(12)
	primary := entry("a", "1", "Show", spring2020, titles)
	secondary := entry("b", "9", "Show", spring2020, titles[2:])
	other := entry("a", "2", "Different Program", spring2020, numbered(3))
	groups := []config.MergeGroup{{Primary: "a", Secondaries: []string{"b"}}}

	input := []*catalog.Entry{primary, secondary, other}
	out := o.ApplyMergeLogic(context.Background(), input, groups)
	if len(out) != 2 {
		t.Fatalf("expected other entry plus merge product, got %d entries", len(out))
	}
	if out[0] != other {
		t.Fatalf("expected untouched entry first, got %+v", out[0])
	}
	merged := out[1]
	if merged.Title != "Show [a&b]" || merged.Source != "a&b" {
		t.Fatalf("unexpected merged title/source %q %q", merged.Title, merged.Source)
	}
	if merged.ID != catalog.MergedID(primary.ID, []int64{secondary.ID}, "a&b") {
		t.Fatalf("unexpected merged id %d", merged.ID)
	}
	if len(merged.MergedFrom) != 2 || merged.MergedFrom[1] != secondary.ID {
		t.Fatalf("unexpected components %v", merged.MergedFrom)
	}
	if len(merged.Episodes) != 12 {
		t.Fatalf("expected 12 episode links, got %d", len(merged.Episodes))
	}
	for i, link := range merged.Episodes {
		sources := locator.Sources(link.Locator, "")
		if i < 2 {
			if locator.IsCompound(link.Locator) || link.Label != "" {
				t.Fatalf("episode %d must be untouched: %+v", i, link)
			}
			continue
		}
		if len(sources) != 2 || sources[0] != "a" || sources[1] != "b" {
			t.Fatalf("episode %d locator %q lacks both sources", i, link.Locator)
		}
		wantSecondary := fmt.Sprintf("b:9-%d", i-1)
		if !strings.HasSuffix(link.Locator, locator.Delimiter+wantSecondary) {
			t.Fatalf("episode %d locator %q, want suffix %q", i, link.Locator, wantSecondary)
		}
		if !strings.HasPrefix(link.Label, "[B]") {
			t.Fatalf("episode %d label %q lacks abbreviation", i, link.Label)
		}
	}
	if locator.IsCompound(primary.Episodes[5].Locator) {
		t.Fatal("input entries must not be mutated")
	}
}

func TestApplyMergeLogicLogsCandidateDecisions(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	registry, err := provider.NewRegistry(&fakeProvider{name: "a"}, &fakeProvider{name: "b"})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	o := New(registry, nil, WithLogger(logger))

	titles := numbered(6)
	primary := entry("a", "1", "Show", spring2020, titles)
	match := entry("b", "1", "Show", spring2020, titles)
	unrelated := entry("b", "2", "Different Program", spring2020, numbered(2))
	groups := []config.MergeGroup{{Primary: "a", Secondaries: []string{"b"}}}
	o.ApplyMergeLogic(context.Background(), []*catalog.Entry{primary, match, unrelated}, groups)

	out := buf.String()
	for _, want := range []string{
		"decision_type=merge_candidate",
		`decision_result=accepted decision_reason="best score"`,
		`decision_result=skipped decision_reason="below match threshold"`,
		`candidate="Different Program"`,
		`msg="alignment shifts scored"`,
		`shifts="+0:`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestCandidateDecision(t *testing.T) {
	best := &catalog.Entry{Title: "best"}
	other := &catalog.Entry{Title: "other"}
	cases := []struct {
		candidate  Candidate
		wantResult string
		wantReason string
	}{
		{Candidate{Entry: other, Skipped: "season mismatch"}, "skipped", "season mismatch"},
		{Candidate{Entry: other, Score: 0.2}, "skipped", "below match threshold"},
		{Candidate{Entry: other, Score: 0.8}, "skipped", "outscored"},
		{Candidate{Entry: best, Score: 0.9}, "accepted", "best score"},
	}
	for _, tc := range cases {
		result, reason := tc.candidate.Decision(best)
		if result != tc.wantResult || reason != tc.wantReason {
			t.Errorf("Decision(%+v) = %q/%q, want %q/%q", tc.candidate, result, reason, tc.wantResult, tc.wantReason)
		}
	}
}

func TestApplyMergeLogicSignatureDedup(t *testing.T) {
	o := newOrchestrator(t, &fakeProvider{name: "a"}, &fakeProvider{name: "b"})
	titles := numbered(4)
	primary := entry("a", "1", "Show", spring2020, titles)
	duplicate := primary.Clone()
	secondary := entry("b", "1", "Show", spring2020, titles)
	groups := []config.MergeGroup{{Primary: "a", Secondaries: []string{"b"}}}

	out := o.ApplyMergeLogic(context.Background(), []*catalog.Entry{primary, duplicate, secondary}, groups)
	if len(out) != 1 || !out[0].IsMerged() {
		t.Fatalf("expected a single merge product, got %d entries", len(out))
	}
}

func TestApplyMergeLogicSkipsCandidatesWithoutEpisodes(t *testing.T) {
	o := newOrchestrator(t, &fakeProvider{name: "a"}, &fakeProvider{name: "b"})
	primary := entry("a", "1", "Show", spring2020, numbered(3))
	secondary := entry("b", "1", "Show", spring2020, nil)
	groups := []config.MergeGroup{{Primary: "a", Secondaries: []string{"b"}}}
	out := o.ApplyMergeLogic(context.Background(), []*catalog.Entry{primary, secondary}, groups)
	if len(out) != 2 || out[0] != primary || out[1] != secondary {
		t.Fatalf("expected entries returned unmerged, got %+v", out)
	}
}

func TestApplyMergeLogicThreeSources(t *testing.T) {
	o := newOrchestrator(t, &fakeProvider{name: "a"}, &fakeProvider{name: "b"}, &fakeProvider{name: "c"})
	titles := numbered(3)
	groups := []config.MergeGroup{{Primary: "a", Secondaries: []string{"b", "c"}}}
	out := o.ApplyMergeLogic(context.Background(), []*catalog.Entry{
		entry("a", "1", "Show", spring2020, titles),
		entry("b", "1", "Show", spring2020, titles),
		entry("c", "1", "Show", spring2020, titles),
	}, groups)
	if len(out) != 1 || out[0].Source != "a&b&c" {
		t.Fatalf("expected one a&b&c product, got %+v", out)
	}
	if got := locator.Sources(out[0].Episodes[0].Locator, ""); len(got) != 3 {
		t.Fatalf("expected three sources in locator, got %v", got)
	}
	if label := out[0].Episodes[0].Label; !strings.HasPrefix(label, "[c][b]") {
		t.Fatalf("unexpected label %q", label)
	}
}

func TestIsCanonical(t *testing.T) {
	for _, title := range []string{"PV1", "第1话 预告", "Trailer", "特报"} {
		if IsCanonical(title) {
			t.Errorf("expected %q non-canonical", title)
		}
	}
	for _, title := range []string{"第1话 出发", "Welcome", "OP", "花絮"} {
		if !IsCanonical(title) {
			t.Errorf("expected %q canonical", title)
		}
	}
}

func TestFetchMergedCommentsMergesAndTags(t *testing.T) {
	a := &fakeProvider{name: "a", comments: map[string][]danmaku.Raw{
		"1": {{ID: 1, Time: 30, Mode: 1, Color: danmaku.White, Text: "later"}, {ID: 2, Time: 10, Mode: 1, Color: danmaku.White, Text: "same"}},
	}}
	b := &fakeProvider{name: "b", comments: map[string][]danmaku.Raw{
		"7": {{ID: 3, Time: 10, Mode: 1, Color: danmaku.White, Text: "same"}, {ID: 4, Time: 5, Mode: 1, Color: danmaku.White, Text: "early"}},
	}}
	o := newOrchestrator(t, a, b)

	comments, err := o.FetchMergedComments(context.Background(), "a:1$$$b:7")
	if err != nil {
		t.Fatalf("FetchMergedComments: %v", err)
	}
	if len(comments) != 3 {
		t.Fatalf("expected duplicate collapsed to 3 comments, got %+v", comments)
	}
	wantText := []string{"early", "same", "later"}
	for i, c := range comments {
		if c.M != wantText[i] {
			t.Fatalf("comment %d = %q, want %q", i, c.M, wantText[i])
		}
		if !strings.HasSuffix(c.P, "[a&b]") {
			t.Fatalf("comment %d render spec %q lacks merged tag", i, c.P)
		}
	}
}

func TestFetchMergedCommentsPartFailure(t *testing.T) {
	a := &fakeProvider{name: "a", comments: map[string][]danmaku.Raw{"1": {{Time: 1, Color: danmaku.White, Text: "x"}}}}
	b := &fakeProvider{name: "b", fail: true}
	o := newOrchestrator(t, a, b)

	comments, err := o.FetchMergedComments(context.Background(), "a:1$$$b:7")
	if err != nil || len(comments) != 1 {
		t.Fatalf("expected failed part treated as empty, got %v %v", comments, err)
	}
	if !strings.HasSuffix(comments[0].P, "[a]") {
		t.Fatalf("expected only the surviving source tag, got %q", comments[0].P)
	}
	fetched, err := o.FetchComments(context.Background(), "a:1$$$b:7")
	if err != nil || !fetched.Partial() {
		t.Fatalf("expected partial fetch, got %+v %v", fetched, err)
	}
	if len(fetched.Failed) != 1 || fetched.Failed[0].Source != "b" || fetched.Failed[0].ID != "7" {
		t.Fatalf("unexpected failed parts %+v", fetched.Failed)
	}
	if whole, _ := o.FetchComments(context.Background(), "a:1"); whole.Partial() {
		t.Fatalf("single healthy part reported partial: %+v", whole.Failed)
	}
	if _, err := o.FetchMergedComments(context.Background(), "b:7"); err == nil {
		t.Fatal("expected error when every part fails")
	}
	if _, err := o.FetchMergedComments(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty locator")
	}
}

func TestFetchMergedCommentsSharesInFlightFetch(t *testing.T) {
	gate := make(chan struct{})
	a := &fakeProvider{name: "a", gate: gate, comments: map[string][]danmaku.Raw{"1": {{Time: 1, Color: danmaku.White, Text: "x"}}}}
	o := newOrchestrator(t, a)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.FetchMergedComments(context.Background(), "a:1")
			errs <- err
		}()
	}
	deadline := time.Now().Add(2 * time.Second)
	for a.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("FetchMergedComments: %v", err)
		}
	}
	if calls := a.calls.Load(); calls != 1 {
		t.Fatalf("expected one upstream call, got %d", calls)
	}
	if o.Pending() != 0 {
		t.Fatalf("expected no pending tasks, got %d", o.Pending())
	}
}
