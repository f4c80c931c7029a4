package session

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/baucua-game/baucua/internal/game"
	"github.com/baucua-game/baucua/internal/protocol"
	"github.com/baucua-game/baucua/internal/transport"
)

const testEndpoint = "baucua-TEST01"

// fakeClock captures scheduled continuations so tests fire them by
// hand instead of sleeping.
type fakeClock struct {
	mu  sync.Mutex
	fns []func()
}

type fakeTimer struct{}

func (fakeTimer) Stop() bool { return false }

func (c *fakeClock) AfterFunc(_ time.Duration, fn func()) Timer {
	c.mu.Lock()
	c.fns = append(c.fns, fn)
	c.mu.Unlock()
	return fakeTimer{}
}

func (c *fakeClock) fire() {
	c.mu.Lock()
	fns := c.fns
	c.fns = nil
	c.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func defaultConfig() Config {
	return Config{
		MinBalanceToJoin: 10000,
		MinBalanceToStay: 500,
		WagerStep:        1000,
		ShakeDelay:       time.Second,
		KickGrace:        10 * time.Millisecond,
	}
}

func newTestSession(t *testing.T, cfg Config, hostBalance int) (*Session, *transport.Memory, *fakeClock) {
	t.Helper()
	net := transport.NewMemory()
	ep, err := net.Listen(testEndpoint)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	clock := &fakeClock{}
	rng := rand.New(rand.NewSource(42))
	s := New(ctx, ep, "hoa", hostBalance, cfg, clock, rng, zap.NewNop().Sugar())
	return s, net, clock
}

func sendMsg(t *testing.T, link transport.Link, msg protocol.Msg) {
	t.Helper()
	env, err := protocol.Encode(msg)
	if err != nil {
		t.Fatalf("encode %s: %v", msg.Tag(), err)
	}
	if err := link.Send(env); err != nil {
		t.Fatalf("send %s: %v", msg.Tag(), err)
	}
}

// recvTag drains the link's events until a message with the wanted tag
// shows up. Broadcasts of other kinds interleave freely, so tests only
// ever assert on the one they care about.
func recvTag(t *testing.T, ch <-chan transport.Event, tag protocol.Tag, within time.Duration) protocol.Msg {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("event stream closed while waiting for %s", tag)
			}
			data, isData := ev.(transport.Data)
			if !isData {
				continue
			}
			if data.Env.Type != tag {
				continue
			}
			msg, err := protocol.Decode(data.Env)
			if err != nil {
				t.Fatalf("decode %s: %v", tag, err)
			}
			return msg
		case <-deadline:
			t.Fatalf("timed out waiting for %s", tag)
			return nil
		}
	}
}

func recvNoData(t *testing.T, ch <-chan transport.Event, within time.Duration) {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			return
		}
		if data, isData := ev.(transport.Data); isData {
			t.Fatalf("expected silence, got %s", data.Env.Type)
		}
	case <-time.After(within):
		// good
	}
}

func getView(t *testing.T, s *Session) View {
	t.Helper()
	reply := make(chan View, 1)
	s.Inbox() <- GetState{Reply: reply}
	select {
	case v := <-reply:
		return v
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for view")
		return View{}
	}
}

// join dials the endpoint and requests admission.
func join(t *testing.T, net *transport.Memory, id, name string, balance int) (transport.Link, <-chan transport.Event) {
	t.Helper()
	link, events, err := net.Dial(context.Background(), testEndpoint)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	sendMsg(t, link, protocol.JoinRequest{Candidate: protocol.Participant{
		ID: id, DisplayName: name, Balance: balance,
	}})
	return link, events
}

func TestAdmitAcceptsAndRejectsByBalance(t *testing.T) {
	s, net, _ := newTestSession(t, defaultConfig(), 100000)

	// A clears the bar
	_, aEvents := join(t, net, "a", "an", 50000)
	acc := recvTag(t, aEvents, protocol.TagJoinAccepted, time.Second).(*protocol.JoinAccepted)
	if len(acc.Members) != 2 {
		t.Fatalf("snapshot should list host and A, got %+v", acc.Members)
	}
	if acc.Members[0].ID != testEndpoint || !acc.Members[0].IsHost {
		t.Fatalf("host must lead the member list, got %+v", acc.Members[0])
	}
	if acc.Bets.Total() != 0 {
		t.Fatalf("fresh room should have no bets, got %+v", acc.Bets)
	}

	// B doesn't
	_, bEvents := join(t, net, "b", "binh", 5000)
	rej := recvTag(t, bEvents, protocol.TagJoinRejected, time.Second).(*protocol.JoinRejected)
	if !strings.Contains(rej.Reason, "10000") {
		t.Fatalf("rejection reason should mention the minimum, got %q", rej.Reason)
	}

	// A hears about nobody: B never made it in
	if v := getView(t, s); len(v.Members) != 2 {
		t.Fatalf("want 2 members, got %d", len(v.Members))
	}
}

func TestWagerAggregateBroadcast(t *testing.T) {
	s, net, _ := newTestSession(t, defaultConfig(), 100000)

	aLink, aEvents := join(t, net, "a", "an", 50000)
	recvTag(t, aEvents, protocol.TagJoinAccepted, time.Second)

	sendMsg(t, aLink, protocol.PlaceBet{Item: game.ItemGourd, Amount: 5000})
	upd := recvTag(t, aEvents, protocol.TagUpdateGlobalBets, time.Second).(*protocol.UpdateGlobalBets)
	if upd.Bets[game.ItemGourd] != 5000 {
		t.Fatalf("aggregate should show gourd 5000, got %+v", upd.Bets)
	}

	// a second bettor lands on the same aggregate
	cLink, cEvents := join(t, net, "c", "chi", 20000)
	recvTag(t, cEvents, protocol.TagJoinAccepted, time.Second)
	sendMsg(t, cLink, protocol.PlaceBet{Item: game.ItemCrab, Amount: 1000})

	upd2 := recvTag(t, aEvents, protocol.TagUpdateGlobalBets, time.Second).(*protocol.UpdateGlobalBets)
	if upd2.Bets[game.ItemGourd] != 5000 || upd2.Bets[game.ItemCrab] != 1000 {
		t.Fatalf("aggregate mismatch: %+v", upd2.Bets)
	}

	// published aggregate equals the ledger's keywise sum
	v := getView(t, s)
	for _, it := range game.Items {
		if v.Bets[it] != upd2.Bets[it] {
			t.Fatalf("published aggregate diverged from ledger on %s", it)
		}
	}
}

func TestResetZeroesOneVector(t *testing.T) {
	_, net, _ := newTestSession(t, defaultConfig(), 100000)

	aLink, aEvents := join(t, net, "a", "an", 50000)
	recvTag(t, aEvents, protocol.TagJoinAccepted, time.Second)
	_, cEvents := join(t, net, "c", "chi", 20000)
	recvTag(t, cEvents, protocol.TagJoinAccepted, time.Second)

	sendMsg(t, aLink, protocol.PlaceBet{Item: game.ItemGourd, Amount: 5000})
	recvTag(t, aEvents, protocol.TagUpdateGlobalBets, time.Second)

	sendMsg(t, aLink, protocol.ResetBets{})
	upd := recvTag(t, cEvents, protocol.TagUpdateGlobalBets, time.Second).(*protocol.UpdateGlobalBets)
	if upd.Bets.Total() != 0 {
		// c's first glimpse may be the pre-reset aggregate; take the next
		upd = recvTag(t, cEvents, protocol.TagUpdateGlobalBets, time.Second).(*protocol.UpdateGlobalBets)
	}
	if upd.Bets.Total() != 0 {
		t.Fatalf("reset should zero the aggregate, got %+v", upd.Bets)
	}
}

func TestRoundFlowSettlesAndClearsLedger(t *testing.T) {
	s, net, clock := newTestSession(t, defaultConfig(), 100000)

	aLink, aEvents := join(t, net, "a", "an", 50000)
	recvTag(t, aEvents, protocol.TagJoinAccepted, time.Second)
	sendMsg(t, aLink, protocol.PlaceBet{Item: game.ItemGourd, Amount: 5000})
	recvTag(t, aEvents, protocol.TagUpdateGlobalBets, time.Second)

	// host bets its own money too
	s.Inbox() <- PlaceBet{Item: game.ItemCrab}
	recvTag(t, aEvents, protocol.TagUpdateGlobalBets, time.Second)

	s.Inbox() <- StartRound{}
	recvTag(t, aEvents, protocol.TagShakeStart, time.Second)
	if v := getView(t, s); v.Phase != PhaseShaking {
		t.Fatalf("want shaking, got %s", v.Phase)
	}

	clock.fire()
	res := recvTag(t, aEvents, protocol.TagShakeResult, time.Second).(*protocol.ShakeResult)
	for _, face := range res.Outcome {
		if !game.ValidItem(face) {
			t.Fatalf("outcome carries unknown item %q", face)
		}
	}

	upd := recvTag(t, aEvents, protocol.TagUpdateGlobalBets, time.Second).(*protocol.UpdateGlobalBets)
	if upd.Bets.Total() != 0 {
		t.Fatalf("ledger should be zeroed after the round, got %+v", upd.Bets)
	}

	// the host settled itself with the same arithmetic everyone uses
	hostWager := game.WagerVector{game.ItemCrab: 1000}
	wantBalance := 100000 - 1000 + game.Settle(hostWager, res.Outcome)
	v := getView(t, s)
	if v.Phase != PhaseIdle {
		t.Fatalf("want idle after settle, got %s", v.Phase)
	}
	if got := v.Members[0].Balance; got != wantBalance {
		t.Fatalf("host balance: want %d, got %d", wantBalance, got)
	}
}

func TestStartRoundIgnoredWhileShaking(t *testing.T) {
	s, net, clock := newTestSession(t, defaultConfig(), 100000)

	_, aEvents := join(t, net, "a", "an", 50000)
	recvTag(t, aEvents, protocol.TagJoinAccepted, time.Second)

	s.Inbox() <- StartRound{}
	recvTag(t, aEvents, protocol.TagShakeStart, time.Second)

	s.Inbox() <- StartRound{}
	recvNoData(t, aEvents, 100*time.Millisecond)

	clock.fire()
	recvTag(t, aEvents, protocol.TagShakeResult, time.Second)
	// drain the settle broadcasts, then expect quiet
	recvTag(t, aEvents, protocol.TagLeaderboardUpdate, time.Second)
	recvNoData(t, aEvents, 100*time.Millisecond)
}

func TestStaleTimerFireIsDropped(t *testing.T) {
	s, net, clock := newTestSession(t, defaultConfig(), 100000)

	_, aEvents := join(t, net, "a", "an", 50000)
	recvTag(t, aEvents, protocol.TagJoinAccepted, time.Second)

	s.Inbox() <- StartRound{}
	recvTag(t, aEvents, protocol.TagShakeStart, time.Second)
	clock.fire()
	recvTag(t, aEvents, protocol.TagShakeResult, time.Second)
	recvTag(t, aEvents, protocol.TagLeaderboardUpdate, time.Second)

	// a leftover fire from the settled round must do nothing
	s.inbox <- shakeFired{gen: 1}
	recvNoData(t, aEvents, 100*time.Millisecond)

	// and the next round still works
	s.Inbox() <- StartRound{}
	recvTag(t, aEvents, protocol.TagShakeStart, time.Second)
	clock.fire()
	recvTag(t, aEvents, protocol.TagShakeResult, time.Second)
}

func TestEvictionAtStayThreshold(t *testing.T) {
	s, net, _ := newTestSession(t, defaultConfig(), 100000)

	aLink, aEvents := join(t, net, "a", "an", 50000)
	recvTag(t, aEvents, protocol.TagJoinAccepted, time.Second)
	dLink, dEvents := join(t, net, "d", "dung", 20000)
	recvTag(t, dEvents, protocol.TagJoinAccepted, time.Second)

	// exactly at the threshold: stays seated
	sendMsg(t, dLink, protocol.PlayerUpdate{Participant: protocol.Participant{
		ID: "d", DisplayName: "dung", Balance: 500,
	}})
	waitUntil(t, time.Second, "the update is applied", func() bool {
		for _, p := range getView(t, s).Members {
			if p.ID == "d" && p.Balance == 500 {
				return true
			}
		}
		return false
	})
	if v := getView(t, s); len(v.Members) != 3 {
		t.Fatalf("at the threshold nobody leaves, got %d members", len(v.Members))
	}

	// one under: out
	sendMsg(t, aLink, protocol.PlayerUpdate{Participant: protocol.Participant{
		ID: "a", DisplayName: "an", Balance: 499,
	}})
	recvTag(t, aEvents, protocol.TagKickedNoMoney, time.Second)
	left := recvTag(t, dEvents, protocol.TagPlayerLeft, time.Second).(*protocol.PlayerLeft)
	if left.DisplayName != "an" {
		t.Fatalf("left notice for %q, want an", left.DisplayName)
	}

	v := getView(t, s)
	if len(v.Members) != 2 {
		t.Fatalf("want host and dung after eviction, got %+v", v.Members)
	}
	for _, p := range v.Members {
		if p.ID == "a" {
			t.Fatalf("an should be gone")
		}
	}
}

func TestHostIsExemptFromEviction(t *testing.T) {
	// host seated with less than the stay threshold: the rule never
	// applies to it
	s, net, _ := newTestSession(t, defaultConfig(), 400)

	dLink, dEvents := join(t, net, "d", "dung", 20000)
	recvTag(t, dEvents, protocol.TagJoinAccepted, time.Second)

	// any registry update triggers the scan
	sendMsg(t, dLink, protocol.PlayerUpdate{Participant: protocol.Participant{
		ID: "d", DisplayName: "dung", Balance: 19000,
	}})
	waitUntil(t, time.Second, "the update is applied", func() bool {
		for _, p := range getView(t, s).Members {
			if p.ID == "d" && p.Balance == 19000 {
				return true
			}
		}
		return false
	})

	v := getView(t, s)
	if len(v.Members) != 2 {
		t.Fatalf("host must survive its own broke balance, got %+v", v.Members)
	}
	if !v.Members[0].IsHost || v.Members[0].Balance != 400 {
		t.Fatalf("host record off: %+v", v.Members[0])
	}
}

func TestLinkCloseRemovesMember(t *testing.T) {
	s, net, _ := newTestSession(t, defaultConfig(), 100000)

	aLink, aEvents := join(t, net, "a", "an", 50000)
	recvTag(t, aEvents, protocol.TagJoinAccepted, time.Second)
	_, dEvents := join(t, net, "d", "dung", 20000)
	recvTag(t, dEvents, protocol.TagJoinAccepted, time.Second)

	sendMsg(t, aLink, protocol.PlaceBet{Item: game.ItemFish, Amount: 2000})
	recvTag(t, dEvents, protocol.TagUpdateGlobalBets, time.Second)

	_ = aLink.Close()

	left := recvTag(t, dEvents, protocol.TagPlayerLeft, time.Second).(*protocol.PlayerLeft)
	if left.DisplayName != "an" {
		t.Fatalf("left notice for %q, want an", left.DisplayName)
	}
	// removal changes the aggregate: an's fish stake evaporates
	upd := recvTag(t, dEvents, protocol.TagUpdateGlobalBets, time.Second).(*protocol.UpdateGlobalBets)
	if upd.Bets.Total() != 0 {
		t.Fatalf("aggregate should drop the leaver's stake, got %+v", upd.Bets)
	}
	if v := getView(t, s); len(v.Members) != 2 {
		t.Fatalf("want 2 members after close, got %d", len(v.Members))
	}
}

func TestJoinNotifiesExistingMembers(t *testing.T) {
	_, net, _ := newTestSession(t, defaultConfig(), 100000)

	_, aEvents := join(t, net, "a", "an", 50000)
	recvTag(t, aEvents, protocol.TagJoinAccepted, time.Second)

	join(t, net, "d", "dung", 20000)
	joined := recvTag(t, aEvents, protocol.TagPlayerJoined, time.Second).(*protocol.PlayerJoined)
	if joined.DisplayName != "dung" {
		t.Fatalf("join notice for %q, want dung", joined.DisplayName)
	}
	lb := recvTag(t, aEvents, protocol.TagLeaderboardUpdate, time.Second).(*protocol.LeaderboardUpdate)
	if len(lb.Members) != 3 {
		t.Fatalf("leaderboard should carry all 3, got %+v", lb.Members)
	}
}

func TestIDCollisionWithHostIsRekeyed(t *testing.T) {
	s, net, _ := newTestSession(t, defaultConfig(), 100000)

	// a candidate claiming the host's own id must not overwrite it
	_, events := join(t, net, testEndpoint, "impostor", 50000)
	recvTag(t, events, protocol.TagJoinAccepted, time.Second)

	v := getView(t, s)
	if len(v.Members) != 2 {
		t.Fatalf("want 2 members, got %+v", v.Members)
	}
	if v.Members[0].DisplayName != "hoa" || !v.Members[0].IsHost {
		t.Fatalf("host record clobbered: %+v", v.Members[0])
	}
}

func TestIDCollisionWithClientIsRekeyed(t *testing.T) {
	s, net, _ := newTestSession(t, defaultConfig(), 100000)

	firstLink, firstEvents := join(t, net, "dup", "an", 50000)
	recvTag(t, firstEvents, protocol.TagJoinAccepted, time.Second)
	secondLink, secondEvents := join(t, net, "dup", "binh", 20000)
	recvTag(t, secondEvents, protocol.TagJoinAccepted, time.Second)

	// both claimants hold seats under distinct ids
	if v := getView(t, s); len(v.Members) != 3 {
		t.Fatalf("want host plus both claimants, got %+v", v.Members)
	}

	// the first claimant leaving must not strand the second
	_ = firstLink.Close()
	recvTag(t, secondEvents, protocol.TagPlayerLeft, time.Second)
	recvTag(t, secondEvents, protocol.TagLeaderboardUpdate, time.Second)

	sendMsg(t, secondLink, protocol.PlaceBet{Item: game.ItemShrimp, Amount: 2000})
	upd := recvTag(t, secondEvents, protocol.TagUpdateGlobalBets, time.Second).(*protocol.UpdateGlobalBets)
	if upd.Bets[game.ItemShrimp] != 2000 {
		t.Fatalf("survivor's bet should land, got %+v", upd.Bets)
	}

	// and a reset must not resurrect the leaver in the ledger
	sendMsg(t, secondLink, protocol.ResetBets{})
	upd = recvTag(t, secondEvents, protocol.TagUpdateGlobalBets, time.Second).(*protocol.UpdateGlobalBets)
	if upd.Bets.Total() != 0 {
		t.Fatalf("reset should zero the aggregate, got %+v", upd.Bets)
	}
	if v := getView(t, s); len(v.Members) != 2 {
		t.Fatalf("want host and survivor, got %+v", v.Members)
	}
}
