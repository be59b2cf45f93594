package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/ghostglove/internal/app"
	"github.com/ayusman/ghostglove/internal/calibration"
	"github.com/ayusman/ghostglove/internal/capture"
	"github.com/ayusman/ghostglove/internal/keymap"
	"github.com/ayusman/ghostglove/internal/server"
	"github.com/ayusman/ghostglove/internal/session"
	"github.com/ayusman/ghostglove/internal/stereo"
	"github.com/ayusman/ghostglove/internal/store"
	"github.com/ayusman/ghostglove/internal/transport"
	"github.com/ayusman/ghostglove/internal/vision"
)

// peer accepts one connection and returns everything sent on it.
func peer(t *testing.T) (addr string, received <-chan string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	ch := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			close(ch)
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		ch <- string(data)
	}()
	return ln.Addr().String(), ch
}

// pipeline builds an App over blank frames whose extractors see positions[i]
// on frame i.
func pipeline(t *testing.T, matcher keymap.Matcher, emitter app.Emitter, positions [][]stereo.Position3D) *app.App {
	t.Helper()

	rig := stereo.DefaultRig()
	var ls, rs [][]vision.Centroid
	for _, frame := range positions {
		l := []vision.Centroid{}
		r := []vision.Centroid{}
		for _, p := range frame {
			lc, rc := rig.Project(p)
			l = append(l, lc)
			r = append(r, rc)
		}
		ls = append(ls, l)
		rs = append(rs, r)
	}
	left, right := vision.NewMockExtractor(), vision.NewMockExtractor()
	left.SetSequence(ls)
	right.SetSequence(rs)

	blank := gocv.NewMatWithSize(8, 8, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { blank.Close() })
	mats := make([]*gocv.Mat, len(positions))
	for i := range mats {
		mats[i] = &blank
	}

	cams := capture.NewStereoCamera(capture.NewMockCamera(mats, false), capture.NewMockCamera(mats, false), true)
	if err := cams.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { cams.Close() })

	sess := session.New(calibration.NewStore(), matcher)
	return app.New(app.Config{
		Source:    cams,
		Processor: app.NewProcessor(left, right, rig, sess),
		Emitter:   emitter,
	})
}

func getJSON(t *testing.T, client *http.Client, url string, v any) {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s error = %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s status = %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("GET %s decode error = %v", url, err)
	}
}

func TestE2E_RecordTypeAndReview(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	addr, received := peer(t)
	sender := transport.NewTCPSender(addr, time.Second)
	if err := sender.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	st, err := store.New(filepath.Join(t.TempDir(), "ghostglove.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer st.Close()

	rec, err := store.NewRecorder(st, keymap.StrategyNearest)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}

	refA := stereo.Position3D{X: -20, Y: 0, Z: 300}
	refB := stereo.Position3D{X: 25, Y: 0, Z: 300}
	nearA := stereo.Position3D{X: -18, Y: 1, Z: 301}
	frames := [][]stereo.Position3D{
		{refA},  // label a
		{refB},  // label b
		{refB},  // toggle
		{nearA}, // trigger
		{nearA}, // trigger
		{refB},  // trigger
		{},      // trigger with no finger
	}
	a := pipeline(t, keymap.NewNearestMatcher(8, 0), app.Emitters{sender, rec}, frames)

	for _, ctl := range []session.Control{
		session.Label("a"),
		session.Label("b"),
		session.Toggle,
		session.Trigger,
		session.Trigger,
		session.Trigger,
		session.Trigger,
	} {
		if !a.Control(ctl) {
			t.Fatalf("Control(%+v) dropped", ctl)
		}
	}

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	sender.Close()

	select {
	case got := <-received:
		if got != "aab" {
			t.Errorf("peer received %q, want %q", got, "aab")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("peer received nothing")
	}

	srv := server.New(server.Config{Store: st, Pipeline: a})
	ts := httptest.NewServer(srv)
	defer ts.Close()
	defer srv.Close()
	client := ts.Client()

	t.Run("Health", func(t *testing.T) {
		var health struct {
			Status     string `json:"status"`
			Mode       string `json:"mode"`
			Frames     uint64 `json:"frames"`
			Calibrated int    `json:"calibrated"`
		}
		getJSON(t, client, ts.URL+"/api/health", &health)
		if health.Status != "ok" || health.Mode != "TYPING" {
			t.Errorf("health = %+v", health)
		}
		if health.Frames != uint64(len(frames)) {
			t.Errorf("frames = %d, want %d", health.Frames, len(frames))
		}
		if health.Calibrated != 2 {
			t.Errorf("calibrated = %d, want 2", health.Calibrated)
		}
	})

	t.Run("Calibration", func(t *testing.T) {
		var cal struct {
			Entries []struct {
				Label string  `json:"label"`
				X     float64 `json:"x"`
			} `json:"entries"`
		}
		getJSON(t, client, ts.URL+"/api/calibration", &cal)
		if len(cal.Entries) != 2 || cal.Entries[0].Label != "a" || cal.Entries[1].Label != "b" {
			t.Fatalf("entries = %+v, want a then b", cal.Entries)
		}
	})

	t.Run("History", func(t *testing.T) {
		var hist struct {
			Counts []store.LabelCount `json:"counts"`
		}
		getJSON(t, client, ts.URL+"/api/history?session="+rec.SessionID(), &hist)
		want := []store.LabelCount{{Label: "a", Count: 2}, {Label: "b", Count: 1}}
		if len(hist.Counts) != len(want) {
			t.Fatalf("counts = %+v, want %+v", hist.Counts, want)
		}
		for i := range want {
			if hist.Counts[i] != want[i] {
				t.Errorf("counts[%d] = %+v, want %+v", i, hist.Counts[i], want[i])
			}
		}
	})

	t.Run("SessionEnds", func(t *testing.T) {
		if err := rec.Close(); err != nil {
			t.Fatalf("Recorder.Close() error = %v", err)
		}
		var sess struct {
			ID         string `json:"id"`
			EndedAt    string `json:"ended_at"`
			Keystrokes []struct {
				Label string `json:"label"`
			} `json:"keystrokes"`
		}
		getJSON(t, client, ts.URL+"/api/history/sessions/"+rec.SessionID(), &sess)
		if sess.EndedAt == "" {
			t.Error("ended_at is empty after Close")
		}
		if len(sess.Keystrokes) != 3 {
			t.Errorf("keystrokes = %+v, want 3", sess.Keystrokes)
		}
	})
}

func TestE2E_DeltaOffline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	sender := transport.NewTCPSender(addr, 200*time.Millisecond)
	if err := sender.Connect(context.Background()); err == nil {
		t.Fatal("Connect() to a closed port should fail")
	}

	var typed []string
	logKeys := app.EmitterFunc(func(hit keymap.Result) error {
		typed = append(typed, hit.Label)
		return nil
	})

	homes := []stereo.Position3D{
		{X: -60, Z: 300},
		{X: -30, Z: 300},
	}
	reach := []stereo.Position3D{
		{X: -60, Z: 300},
		{X: -30, Z: 315},
	}
	a := pipeline(t, keymap.NewDeltaMatcher(keymap.DefaultDeltaConfig()),
		app.Emitters{sender, logKeys},
		[][]stereo.Position3D{homes, homes, reach})

	a.Control(session.Label("c"))
	a.Control(session.Toggle)
	a.Control(session.Trigger)

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{"s", "e"}
	if len(typed) != len(want) || typed[0] != want[0] || typed[1] != want[1] {
		t.Errorf("typed %v, want %v while the peer is offline", typed, want)
	}
}
