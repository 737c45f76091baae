// Package mockcuckoo implements a deterministic, in-memory stand-in for the
// Cuckoo api.py REST server. It is used by the integration tests and by the
// mock-cuckoo command for local development.
//
// Submitted tasks are reported immediately. Every task gets a fixed network
// capture and two screenshots, served one at a time or as a zip archive.
package mockcuckoo

import (
	"archive/zip"
	"bytes"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Version is reported by the status endpoint.
const Version = "2.0.7"

// Machine is an analysis machine known to the mock.
type Machine struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Platform string `json:"platform"`
	IP       string `json:"ip"`
	Locked   bool   `json:"locked"`
	Status   string `json:"status"`
}

// DefaultMachines is the machine inventory of a new Server.
var DefaultMachines = []Machine{
	{Name: "cuckoo1", Label: "cuckoo1", Platform: "windows", IP: "192.168.56.101", Status: "poweroff"},
	{Name: "cuckoo2", Label: "cuckoo2", Platform: "linux", IP: "192.168.56.102", Status: "poweroff"},
}

// PcapHeader starts every network capture served by the mock.
var PcapHeader = []byte{0xd4, 0xc3, 0xb2, 0xa1, 0x02, 0x00, 0x04, 0x00}

type task struct {
	ID        int               `json:"id"`
	Category  string            `json:"category"`
	Target    string            `json:"target"`
	Status    string            `json:"status"`
	SampleID  *int              `json:"sample_id"`
	Options   map[string]string `json:"options"`
	AddedOn   time.Time         `json:"added_on"`
	Completed time.Time         `json:"completed_on"`
}

type sample struct {
	ID       int    `json:"id"`
	FileSize int    `json:"file_size"`
	MD5      string `json:"md5"`
	SHA256   string `json:"sha256"`
	data     []byte
}

// Server is the mock api.py state. Create it with New.
type Server struct {
	mu       sync.Mutex
	machines []Machine
	tasks    map[int]*task
	samples  []*sample
	nextTask int
	now      func() time.Time
}

// New returns an empty Server with the default machines.
func New() *Server {
	return &Server{
		machines: append([]Machine(nil), DefaultMachines...),
		tasks:    make(map[int]*task),
		nextTask: 1,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Handler returns the api.py routes plus GET /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /cuckoo/status", s.handleStatus)
	mux.HandleFunc("GET /machines/list", s.handleListMachines)
	mux.HandleFunc("GET /machines/view/{name}", s.handleViewMachine)
	mux.HandleFunc("GET /tasks/list", s.handleListTasks)
	mux.HandleFunc("GET /tasks/list/{limit}", s.handleListTasks)
	mux.HandleFunc("GET /tasks/list/{limit}/{offset}", s.handleListTasks)
	mux.HandleFunc("GET /tasks/view/{id}", s.handleViewTask)
	mux.HandleFunc("GET /tasks/report/{id}", s.handleReport)
	mux.HandleFunc("GET /tasks/report/{id}/{format}", s.handleReport)
	mux.HandleFunc("GET /tasks/delete/{id}", s.handleDeleteTask)
	mux.HandleFunc("GET /tasks/screenshots/{id}", s.handleScreenshots)
	mux.HandleFunc("GET /tasks/screenshots/{id}/{index}", s.handleScreenshots)
	mux.HandleFunc("POST /tasks/create/file", s.handleCreateFile)
	mux.HandleFunc("POST /tasks/create/url", s.handleCreateURL)
	mux.HandleFunc("GET /files/view/{kind}/{value}", s.handleViewFile)
	mux.HandleFunc("GET /files/get/{sha256}", s.handleGetFile)
	mux.HandleFunc("GET /pcap/get/{id}", s.handlePcap)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	return mux
}

// --- Status and machines ---

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	total := len(s.tasks)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"version":  Version,
		"hostname": "mock-cuckoo",
		"machines": map[string]int{"total": len(s.machines), "available": len(s.machines)},
		"tasks": map[string]int{
			"total":     total,
			"pending":   0,
			"running":   0,
			"completed": 0,
			"reported":  total,
		},
	})
}

func (s *Server) handleListMachines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"machines": s.machines})
}

func (s *Server) handleViewMachine(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	for _, m := range s.machines {
		if m.Name == name {
			writeJSON(w, http.StatusOK, map[string]any{"machine": m})
			return
		}
	}
	writeMessage(w, http.StatusNotFound, "Machine not found")
}

// --- Tasks ---

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	limit, okLimit := optionalInt(r.PathValue("limit"))
	offset, okOffset := optionalInt(r.PathValue("offset"))
	if !okLimit || !okOffset {
		writeMessage(w, http.StatusBadRequest, "Invalid limit or offset")
		return
	}

	s.mu.Lock()
	tasks := make([]*task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.mu.Unlock()
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })

	if offset > len(tasks) {
		offset = len(tasks)
	}
	tasks = tasks[offset:]
	if limit > 0 && limit < len(tasks) {
		tasks = tasks[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (s *Server) handleViewTask(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookupTask(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task": t})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookupTask(w, r)
	if !ok {
		return
	}
	if format := r.PathValue("format"); format != "" && format != "json" {
		writeMessage(w, http.StatusBadRequest, "Invalid report format")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"info": map[string]any{
			"id":       t.ID,
			"category": t.Category,
			"started":  t.AddedOn,
			"ended":    t.Completed,
		},
		"target": map[string]any{
			"category": t.Category,
			t.Category: t.Target,
		},
		"signatures": []any{},
		"network":    map[string]any{"hosts": []string{}},
	})
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookupTask(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.tasks, t.ID)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"status": "OK"})
}

func (s *Server) handleScreenshots(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookupTask(w, r)
	if !ok {
		return
	}

	shots := screenshots(t.ID)
	if raw := r.PathValue("index"); raw != "" {
		index, err := strconv.Atoi(raw)
		if err != nil || index < 0 || index >= len(shots) {
			writeMessage(w, http.StatusNotFound, "Screenshot not found!")
			return
		}
		writeBinary(w, "image/jpeg", shots[index])
		return
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i, shot := range shots {
		f, err := zw.Create(strconv.Itoa(i) + ".jpg")
		if err != nil {
			writeMessage(w, http.StatusInternalServerError, err.Error())
			return
		}
		f.Write(shot)
	}
	if err := zw.Close(); err != nil {
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeBinary(w, "application/zip", buf.Bytes())
}

func (s *Server) handlePcap(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookupTask(w, r)
	if !ok {
		return
	}
	writeBinary(w, "application/vnd.tcpdump.pcap", Pcap(t.ID))
}

// lookupTask resolves the {id} path value or writes the api.py error.
func (s *Server) lookupTask(w http.ResponseWriter, r *http.Request) (*task, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeMessage(w, http.StatusNotFound, "Task not found")
		return nil, false
	}
	s.mu.Lock()
	t, ok := s.tasks[id]
	s.mu.Unlock()
	if !ok {
		writeMessage(w, http.StatusNotFound, "Task not found")
		return nil, false
	}
	return t, true
}

// --- Submissions ---

func (s *Server) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid form")
		return
	}
	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		writeMessage(w, http.StatusBadRequest, "No file has been provided")
		return
	}
	f, err := files[0].Open()
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	smp := s.addSample(data)
	id := s.addTask("file", files[0].Filename, &smp.ID, formOptions(r))
	s.mu.Unlock()

	slog.Debug("mock task created", "id", id, "category", "file", "sha256", smp.SHA256)
	writeJSON(w, http.StatusOK, map[string]any{"task_id": id})
}

func (s *Server) handleCreateURL(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid form")
		return
	}
	target := formURL(r)
	if target == "" {
		writeMessage(w, http.StatusBadRequest, "No URL has been provided")
		return
	}

	s.mu.Lock()
	id := s.addTask("url", target, nil, formOptions(r))
	s.mu.Unlock()

	slog.Debug("mock task created", "id", id, "category", "url", "target", target)
	writeJSON(w, http.StatusOK, map[string]any{"task_id": id})
}

// formURL reads the url part, which clients send either as a value or as a
// file part without a name.
func formURL(r *http.Request) string {
	if v := r.MultipartForm.Value["url"]; len(v) > 0 {
		return v[0]
	}
	for _, fh := range r.MultipartForm.File["url"] {
		f, err := fh.Open()
		if err != nil {
			continue
		}
		data, _ := io.ReadAll(f)
		f.Close()
		return string(data)
	}
	return ""
}

func formOptions(r *http.Request) map[string]string {
	opts := make(map[string]string)
	for k, v := range r.MultipartForm.Value {
		if k == "url" || len(v) == 0 {
			continue
		}
		opts[k] = v[0]
	}
	return opts
}

// addTask must be called with s.mu held.
func (s *Server) addTask(category, target string, sampleID *int, opts map[string]string) int {
	id := s.nextTask
	s.nextTask++
	now := s.now()
	s.tasks[id] = &task{
		ID:        id,
		Category:  category,
		Target:    target,
		Status:    "reported",
		SampleID:  sampleID,
		Options:   opts,
		AddedOn:   now,
		Completed: now,
	}
	return id
}

// addSample must be called with s.mu held. Identical content maps to the
// same sample.
func (s *Server) addSample(data []byte) *sample {
	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])
	for _, smp := range s.samples {
		if smp.SHA256 == digest {
			return smp
		}
	}
	md := md5.Sum(data)
	smp := &sample{
		ID:       len(s.samples) + 1,
		FileSize: len(data),
		MD5:      hex.EncodeToString(md[:]),
		SHA256:   digest,
		data:     data,
	}
	s.samples = append(s.samples, smp)
	return smp
}

// --- Files ---

func (s *Server) handleViewFile(w http.ResponseWriter, r *http.Request) {
	kind, value := r.PathValue("kind"), r.PathValue("value")
	if kind != "id" && kind != "md5" && kind != "sha256" {
		writeMessage(w, http.StatusBadRequest, "Invalid lookup term")
		return
	}
	if smp := s.findSample(kind, value); smp != nil {
		writeJSON(w, http.StatusOK, map[string]any{"sample": smp})
		return
	}
	writeMessage(w, http.StatusNotFound, "File not found")
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	smp := s.findSample("sha256", r.PathValue("sha256"))
	if smp == nil {
		writeMessage(w, http.StatusNotFound, "File not found")
		return
	}
	writeBinary(w, "application/octet-stream", smp.data)
}

func (s *Server) findSample(kind, value string) *sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, smp := range s.samples {
		switch {
		case kind == "id" && strconv.Itoa(smp.ID) == value,
			kind == "md5" && smp.MD5 == value,
			kind == "sha256" && smp.SHA256 == value:
			return smp
		}
	}
	return nil
}

// --- Artifacts ---

// Pcap returns the network capture served for a task.
func Pcap(taskID int) []byte {
	return append(append([]byte(nil), PcapHeader...), []byte("task-"+strconv.Itoa(taskID))...)
}

func screenshots(taskID int) [][]byte {
	id := strconv.Itoa(taskID)
	return [][]byte{
		[]byte("screenshot-0-task-" + id),
		[]byte("screenshot-1-task-" + id),
	}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.Encode(v)
}

// writeMessage writes an api.py style error body.
func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func writeBinary(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func optionalInt(raw string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	return n, err == nil && n >= 0
}
