package media

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"
)

const testVideoID = "dQw4w9WgXcQ"

const analyzeFragment = `
<div class="row">
  <div class="col-xs-12 col-sm-5 col-md-5">
    <div class="thumbnail cover">
      <a href="https://www.youtube.com/watch?v=dQw4w9WgXcQ"><img src="https://i.ytimg.com/vi/dQw4w9WgXcQ/0.jpg" alt="cover"></a>
      <div class="caption text-left"><b>
        Rick Astley - Never Gonna Give You Up
      </b></div>
    </div>
  </div>
  <div class="tab-content">
    <div class="tab-pane fade active in" id="mp4">
      <table class="table table-bordered"><tbody>
        <tr><td>1080p (.mp4)</td><td>61.2 MB</td><td><a>Download</a></td></tr>
        <tr><td>720p (.mp4)</td><td>32.4 MB</td><td><a>Download</a></td></tr>
        <tr><td>480p (.mp4)</td><td> 18.9 MB </td><td><a>Download</a></td></tr>
      </tbody></table>
    </div>
    <div class="tab-pane fade" id="audio">
      <table class="table table-bordered"><tbody>
        <tr><td>MP3 - 128kbps</td><td>3.3 MB</td><td><a>Download</a></td></tr>
      </tbody></table>
    </div>
  </div>
</div>
<script type="text/javascript">var k_data_vid = "dQw4w9WgXcQ"; var k__id = "5f1d2c3b4a"; var video_service = "youtube";</script>
`

const videoFragment = `<div class="form-group has-success has-feedback"><a href="https://files.example.net/dl/abc.mp4?t=1" rel="nofollow" type="button" class="btn btn-success btn-file">Download .mp4</a></div>`

const audioFragment = `<div class="form-group has-success has-feedback"><a href="https://files.example.net/dl/abc.mp3?t=1" rel="nofollow" type="button" class="btn btn-success btn-file">Download .mp3</a></div>`

// fakeConverter serves canned fragments on the converter endpoints and
// records every request it receives.
type fakeConverter struct {
	server *httptest.Server

	mu       sync.Mutex
	fragment map[Stage]string
	status   map[Stage]int
	delay    map[Stage]time.Duration
	forms    map[Stage][]url.Values
	headers  map[Stage]http.Header
}

func newFakeConverter(t *testing.T) *fakeConverter {
	t.Helper()

	fc := &fakeConverter{
		fragment: map[Stage]string{
			StageAnalyze:      analyzeFragment,
			StageConvertVideo: videoFragment,
			StageConvertAudio: audioFragment,
		},
		status:  map[Stage]int{},
		delay:   map[Stage]time.Duration{},
		forms:   map[Stage][]url.Values{},
		headers: map[Stage]http.Header{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/analyze/ajax", func(w http.ResponseWriter, r *http.Request) {
		fc.serve(StageAnalyze, w, r)
	})
	mux.HandleFunc("/convert", func(w http.ResponseWriter, r *http.Request) {
		stage := StageConvertVideo
		if r.FormValue("ftype") == "mp3" {
			stage = StageConvertAudio
		}
		fc.serve(stage, w, r)
	})

	fc.server = httptest.NewServer(mux)
	t.Cleanup(fc.server.Close)
	return fc
}

func (fc *fakeConverter) serve(stage Stage, w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()

	fc.mu.Lock()
	fc.forms[stage] = append(fc.forms[stage], r.PostForm)
	fc.headers[stage] = r.Header.Clone()
	fragment, status, delay := fc.fragment[stage], fc.status[stage], fc.delay[stage]
	fc.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if status != 0 && status != http.StatusOK {
		http.Error(w, "converter unavailable", status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": "success",
		"result": fragment,
	})
}

func (fc *fakeConverter) set(stage Stage, fragment string) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.fragment[stage] = fragment
}

func (fc *fakeConverter) fail(stage Stage, status int) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.status[stage] = status
}

func (fc *fakeConverter) stall(stage Stage, d time.Duration) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.delay[stage] = d
}

func (fc *fakeConverter) calls(stage Stage) int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return len(fc.forms[stage])
}

func (fc *fakeConverter) lastForm(stage Stage) url.Values {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	forms := fc.forms[stage]
	if len(forms) == 0 {
		return nil
	}
	return forms[len(forms)-1]
}

func (fc *fakeConverter) lastHeader(stage Stage) http.Header {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.headers[stage]
}

func (fc *fakeConverter) options() ConverterOptions {
	return ConverterOptions{
		BaseURL:        fc.server.URL,
		UserAgent:      "mediagrab-test/1.0",
		SecCHUA:        `"Chromium";v="91"`,
		AcceptLanguage: "en-US,en;q=0.9",
		Cookie:         "PHPSESSID=test",
		StageTimeout:   2 * time.Second,
	}
}

type stageRecord struct {
	stage   string
	outcome string
}

type searchRecord struct {
	provider string
	outcome  string
	hits     int
}

// fakeRecorder captures measurements in memory.
type fakeRecorder struct {
	mu          sync.Mutex
	stages      []stageRecord
	resolutions []string
	searches    []searchRecord
}

func (r *fakeRecorder) ObserveStage(stage, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stageRecord{stage: stage, outcome: outcome})
}

func (r *fakeRecorder) ObserveResolution(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolutions = append(r.resolutions, outcome)
}

func (r *fakeRecorder) ObserveSearch(provider, outcome string, hits int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.searches = append(r.searches, searchRecord{provider: provider, outcome: outcome, hits: hits})
}
