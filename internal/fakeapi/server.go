// Package fakeapi is an in-memory stand-in for the REST backend, shaped
// like the production service: numeric ids, a paged transactions list,
// embedded categories and JWT bearer auth.
package fakeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Options tune the fake backend.
type Options struct {
	Secret   string        // HMAC key for issued tokens
	TokenTTL time.Duration // lifetime of issued tokens

	// Collections listed here answer 404, like deployments that never
	// shipped them.
	Disabled []string
}

type user struct {
	ID           int64
	Email        string
	FirstName    string
	LastName     string
	PasswordHash []byte
}

type record = map[string]any

// Server holds every user's data in memory.
type Server struct {
	opts Options
	log  *logrus.Logger

	mu     sync.Mutex
	nextID int64
	users  map[string]*user              // by email
	data   map[int64]map[string][]record // user id -> collection -> records
}

type ctxKey struct{}

// New creates an empty backend.
func New(opts Options, logger *logrus.Logger) *Server {
	if opts.Secret == "" {
		opts.Secret = "spendwise-dev-secret"
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	return &Server{
		opts:  opts,
		log:   logger,
		users: make(map[string]*user),
		data:  make(map[int64]map[string][]record),
	}
}

// Handler routes /api/... requests.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	// Public routes
	api.HandleFunc("/health", s.health).Methods("GET")
	api.HandleFunc("/auth/register", s.register).Methods("POST")
	api.HandleFunc("/auth/login", s.login).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("/").Subrouter()
	protected.Use(s.authenticate)
	protected.HandleFunc("/auth/validate", s.validate).Methods("GET")
	for _, name := range []string{"transactions", "categories", "accounts", "budgets"} {
		if s.disabled(name) {
			continue
		}
		protected.HandleFunc("/"+name, s.list(name)).Methods("GET")
		protected.HandleFunc("/"+name, s.create(name)).Methods("POST")
		protected.HandleFunc("/"+name+"/{id}", s.get(name)).Methods("GET")
		protected.HandleFunc("/"+name+"/{id}", s.update(name)).Methods("PUT")
		protected.HandleFunc("/"+name+"/{id}", s.remove(name)).Methods("DELETE")
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "no route for "+r.URL.Path)
	})
	return r
}

func (s *Server) disabled(name string) bool {
	for _, d := range s.opts.Disabled {
		if strings.EqualFold(d, name) {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"status": status, "message": msg})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "UP"})
}

func (s *Server) issue(u *user) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(u.ID, 10),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.opts.TokenTTL)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	return token.SignedString([]byte(s.opts.Secret))
}

func authResponse(u *user, token string) map[string]any {
	return map[string]any{
		"token":     token,
		"type":      "Bearer",
		"id":        u.ID,
		"email":     u.Email,
		"firstName": u.FirstName,
		"lastName":  u.LastName,
	}
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Email     string `json:"email"`
		Password  string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || len(req.Password) < 6 {
		writeError(w, http.StatusBadRequest, "email and a password of at least 6 characters are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusBadRequest, "password cannot be used")
		return
	}

	s.mu.Lock()
	if _, exists := s.users[email]; exists {
		s.mu.Unlock()
		writeError(w, http.StatusBadRequest, "Email is already in use!")
		return
	}
	s.nextID++
	u := &user{
		ID:           s.nextID,
		Email:        email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
	}
	s.users[email] = u
	s.mu.Unlock()

	token, err := s.issue(u)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	s.log.Infof("User registered: %s", u.Email)
	writeJSON(w, http.StatusOK, authResponse(u, token))
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	u, ok := s.users[strings.ToLower(strings.TrimSpace(req.Email))]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := s.issue(u)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	s.log.Infof("User logged in: %s", u.Email)
	writeJSON(w, http.StatusOK, authResponse(u, token))
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		var claims jwt.RegisteredClaims
		_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
			return []byte(s.opts.Secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		id, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token subject")
			return
		}
		u := s.userByID(id)
		if u == nil {
			writeError(w, http.StatusUnauthorized, "unknown user")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, u)))
	})
}

func (s *Server) userByID(id int64) *user {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func currentUser(r *http.Request) *user {
	u, _ := r.Context().Value(ctxKey{}).(*user)
	return u
}

func (s *Server) validate(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"valid": true,
		"user": map[string]any{
			"id":        u.ID,
			"email":     u.Email,
			"firstName": u.FirstName,
			"lastName":  u.LastName,
		},
	})
}

// collection must be called with mu held.
func (s *Server) collection(userID int64, name string) []record {
	if s.data[userID] == nil {
		s.data[userID] = make(map[string][]record)
	}
	return s.data[userID][name]
}

func recordID(rec record) int64 {
	switch v := rec["id"].(type) {
	case int64:
		return v
	case json.Number:
		n, _ := v.Int64()
		return n
	}
	return 0
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

func (s *Server) list(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := currentUser(r)
		s.mu.Lock()
		items := append([]record{}, s.collection(u.ID, name)...)
		s.mu.Unlock()

		if name != "transactions" {
			writeJSON(w, http.StatusOK, items)
			return
		}

		// Spring-style page, newest first.
		sort.SliceStable(items, func(i, j int) bool {
			di, _ := items[i]["transactionDate"].(string)
			dj, _ := items[j]["transactionDate"].(string)
			return di > dj
		})
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		page = max(page, 0)
		size, err := strconv.Atoi(r.URL.Query().Get("size"))
		if err != nil || size <= 0 {
			size = 20
		}
		start := min(page*size, len(items))
		end := min(start+size, len(items))
		writeJSON(w, http.StatusOK, map[string]any{
			"content":       items[start:end],
			"number":        page,
			"size":          size,
			"totalElements": len(items),
			"last":          end >= len(items),
		})
	}
}

func (s *Server) get(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		u := currentUser(r)
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, rec := range s.collection(u.ID, name) {
			if recordID(rec) == id {
				writeJSON(w, http.StatusOK, rec)
				return
			}
		}
		writeError(w, http.StatusNotFound, fmt.Sprintf("%s %d not found", name, id))
	}
}

func decodeRecord(r *http.Request) (record, error) {
	var rec record
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&rec); err != nil {
		return nil, errors.New("invalid request body")
	}
	if rec == nil {
		return nil, errors.New("request body must be an object")
	}
	return rec, nil
}

// normalize shapes rec the way the production backend returns it. Must be
// called with mu held.
func (s *Server) normalize(userID int64, name string, rec record) {
	if t, ok := rec["type"].(string); ok {
		rec["type"] = strings.ToUpper(t)
	}
	if p, ok := rec["period"].(string); ok {
		rec["period"] = strings.ToUpper(p)
	}
	if name != "transactions" {
		return
	}
	if d, ok := rec["date"].(string); ok && rec["transactionDate"] == nil {
		rec["transactionDate"] = d
	}
	delete(rec, "date")
	if catID := rec["categoryId"]; catID != nil {
		for _, c := range s.collection(userID, "categories") {
			if fmt.Sprint(c["id"]) == fmt.Sprint(catID) {
				rec["category"] = c
				break
			}
		}
	}
}

func (s *Server) create(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := decodeRecord(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		u := currentUser(r)
		s.mu.Lock()
		s.nextID++
		rec["id"] = s.nextID
		s.normalize(u.ID, name, rec)
		items := s.collection(u.ID, name)
		s.data[u.ID][name] = append(items, rec)
		s.mu.Unlock()

		writeJSON(w, http.StatusCreated, rec)
	}
}

func (s *Server) update(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		rec, err := decodeRecord(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		u := currentUser(r)
		s.mu.Lock()
		defer s.mu.Unlock()
		items := s.collection(u.ID, name)
		for i, existing := range items {
			if recordID(existing) == id {
				rec["id"] = id
				s.normalize(u.ID, name, rec)
				items[i] = rec
				writeJSON(w, http.StatusOK, rec)
				return
			}
		}
		writeError(w, http.StatusNotFound, fmt.Sprintf("%s %d not found", name, id))
	}
}

func (s *Server) remove(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		u := currentUser(r)
		s.mu.Lock()
		defer s.mu.Unlock()
		items := s.collection(u.ID, name)
		for i, existing := range items {
			if recordID(existing) == id {
				s.data[u.ID][name] = append(items[:i:i], items[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		writeError(w, http.StatusNotFound, fmt.Sprintf("%s %d not found", name, id))
	}
}
