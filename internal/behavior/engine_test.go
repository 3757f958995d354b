package behavior

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"ambitious/internal/ai"
	"ambitious/internal/model"
)

type fakeStore struct {
	mu        sync.Mutex
	today     map[model.ActionType]int
	targets   []model.EngagementTarget
	liked     map[string]bool
	commented map[string]bool
	likes     []string
	comments  []string
	logs      []model.EngagementLogEntry
	stats     map[model.Stat]int
	query     model.TargetQuery
	active    []model.NPCProfile
	panicFor  string
	activity  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		today:     map[model.ActionType]int{},
		liked:     map[string]bool{},
		commented: map[string]bool{},
		stats:     map[model.Stat]int{},
	}
}

func (s *fakeStore) GetTodayEngagementCount(_ context.Context, npcID string, a model.ActionType, _ time.Time) (int, error) {
	if npcID == s.panicFor {
		panic("corrupt row")
	}
	return s.today[a], nil
}

func (s *fakeStore) FindEngagementTargets(_ context.Context, q model.TargetQuery) ([]model.EngagementTarget, error) {
	s.query = q
	if q.Limit < len(s.targets) {
		return s.targets[:q.Limit], nil
	}
	return s.targets, nil
}

func (s *fakeStore) HasLiked(_ context.Context, postID, _ string) (bool, error) {
	return s.liked[postID], nil
}

func (s *fakeStore) HasCommented(_ context.Context, postID, _ string) (bool, error) {
	return s.commented[postID], nil
}

func (s *fakeStore) CreateLike(_ context.Context, postID, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.likes = append(s.likes, postID)
	s.liked[postID] = true
	return nil
}

func (s *fakeStore) CreateComment(_ context.Context, postID, _, content string) (string, error) {
	s.comments = append(s.comments, postID)
	return fmt.Sprintf("c-%d", len(s.comments)), nil
}

func (s *fakeStore) LogEngagement(_ context.Context, e *model.EngagementLogEntry) error {
	s.logs = append(s.logs, *e)
	return nil
}

func (s *fakeStore) IncrementNPCStat(_ context.Context, _ string, stat model.Stat) error {
	s.stats[stat]++
	return nil
}

func (s *fakeStore) UpdateNPCActivity(context.Context, string, time.Time) error {
	s.activity++
	return nil
}

func (s *fakeStore) GetActiveNPCsForProcessing(context.Context) ([]model.NPCProfile, error) {
	return s.active, nil
}

type commentProvider struct {
	calls  int
	failOn int
	reqs   []ai.CommentRequest
}

func (p *commentProvider) Name() model.AIModel { return model.AIModelClaude }
func (p *commentProvider) Complete(context.Context, string, string) (string, error) {
	return "", nil
}
func (p *commentProvider) GeneratePost(context.Context, ai.PostRequest) (ai.PostResult, error) {
	return ai.PostResult{}, nil
}
func (p *commentProvider) GenerateComment(_ context.Context, req ai.CommentRequest) (ai.CommentResult, error) {
	p.calls++
	p.reqs = append(p.reqs, req)
	if p.calls == p.failOn {
		return ai.CommentResult{}, errors.New("rate limited")
	}
	return ai.CommentResult{Content: "Nice one @" + req.AuthorUsername}, nil
}

type factory struct{ p *commentProvider }

func (f factory) New(model.AIModel, float64) (ai.Provider, error) { return f.p, nil }

func targets(ids ...string) []model.EngagementTarget {
	out := make([]model.EngagementTarget, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.EngagementTarget{PostID: id, PostContent: "content " + id, PostType: model.PostTypeAsk, AuthorUsername: "u" + id})
	}
	return out
}

func liker(likesPerDay int) model.NPCProfile {
	return model.NPCProfile{
		ID: "npc", UserID: "npc-user", PersonaName: "Maya", IsActive: true,
		EngagementSettings: model.EngagementSettings{AutoLike: true, LikesPerDay: likesPerDay},
	}
}

func TestLikeFlowStopsAtDailyLimit(t *testing.T) {
	s := newFakeStore()
	s.today[model.ActionLike] = 10
	s.targets = targets("p1", "p2")
	res := NewEngine(liker(10), s, factory{}, Options{}).ProcessEngagement(context.Background())
	if res.Likes != 0 || len(s.likes) != 0 || len(res.Errors) != 0 {
		t.Fatalf("expected no likes at the limit: %+v %v", res, s.likes)
	}
	if s.activity != 0 {
		t.Fatalf("activity should not be stamped without actions")
	}
}

func TestLikeFlowSkipsAlreadyLiked(t *testing.T) {
	s := newFakeStore()
	s.today[model.ActionLike] = 8
	s.targets = targets("p1", "p2", "p3", "p4")
	s.liked["p1"] = true
	npc := liker(10)
	npc.EngagementSettings.CommentOnTypes = []model.PostType{model.PostTypeAsk}
	res := NewEngine(npc, s, factory{}, Options{}).ProcessEngagement(context.Background())
	if res.Likes != 2 || strings.Join(s.likes, ",") != "p2,p3" {
		t.Fatalf("expected p2,p3 liked, got %v (%+v)", s.likes, res)
	}
	if s.query.Limit != 6 || s.query.ExcludeUserID != "npc-user" || len(s.query.PostTypes) != 1 {
		t.Fatalf("unexpected candidate query: %+v", s.query)
	}
	if s.stats[model.StatLikesGiven] != 2 || len(s.logs) != 2 || s.logs[0].Status != model.ActionCompleted || s.activity != 1 {
		t.Fatalf("bookkeeping mismatch: stats=%v logs=%d activity=%d", s.stats, len(s.logs), s.activity)
	}
}

func TestCommentFlowLogsFailuresAndContinues(t *testing.T) {
	s := newFakeStore()
	s.targets = targets("p1", "p2", "p3")
	s.commented["p1"] = true
	p := &commentProvider{failOn: 1}
	npc := model.NPCProfile{
		ID: "npc", UserID: "npc-user", PersonaName: "Leo", IsActive: true, Tone: model.ToneFriendly,
		EngagementSettings: model.EngagementSettings{AutoComment: true, CommentsPerDay: 2, EngagementStyle: model.StyleCurious},
	}
	res := NewEngine(npc, s, factory{p: p}, Options{CommentDelay: time.Millisecond}).ProcessEngagement(context.Background())
	if res.Comments != 1 || len(res.Errors) != 1 || p.calls != 2 {
		t.Fatalf("unexpected result: %+v calls=%d", res, p.calls)
	}
	if len(s.logs) != 2 || s.logs[0].Status != model.ActionFailed || s.logs[0].ErrorMessage == "" {
		t.Fatalf("expected a failed log first: %+v", s.logs)
	}
	done := s.logs[1]
	if done.Status != model.ActionCompleted || done.CreatedCommentID != "c-1" || done.CommentContent != "Nice one @up3" {
		t.Fatalf("completed log missing details: %+v", done)
	}
	if p.reqs[0].Style != model.StyleCurious || p.reqs[0].Persona.Tone != model.ToneFriendly {
		t.Fatalf("style or tone not forwarded: %+v", p.reqs[0])
	}
}

func TestInactiveNPCDoesNothing(t *testing.T) {
	s := newFakeStore()
	s.targets = targets("p1")
	npc := liker(5)
	npc.IsActive = false
	if res := NewEngine(npc, s, factory{}, Options{}).ProcessEngagement(context.Background()); res.Likes != 0 || len(s.likes) != 0 {
		t.Fatalf("inactive npc engaged: %+v", res)
	}
}

func TestFleetContinuesPastPanickingNPC(t *testing.T) {
	s := newFakeStore()
	s.targets = targets("p1", "p2")
	bad := liker(5)
	bad.ID, bad.PersonaName = "bad", "Broken"
	good := liker(1)
	good.ID, good.PersonaName = "good", "Steady"
	s.active = []model.NPCProfile{bad, good}
	s.panicFor = "bad"
	res, err := NewFleet(s, factory{}, Options{}).ProcessAllActiveNPCs(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.NPCs != 2 || res.Likes != 1 {
		t.Fatalf("sweep did not continue: %+v", res)
	}
	if len(res.Errors) != 1 || !strings.HasPrefix(res.Errors[0], "Broken: panic") {
		t.Fatalf("expected persona-prefixed panic error: %v", res.Errors)
	}
}
