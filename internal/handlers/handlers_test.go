package handlers

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"mercamaps/internal/config"
	"mercamaps/internal/db"
	"mercamaps/internal/middleware"
	"mercamaps/internal/models"
	"mercamaps/internal/sessions"
	"mercamaps/internal/store"
)

type env struct {
	users     *store.UserStore
	locations *store.LocationStore
	sessions  *sessions.Manager
}

func newEnv(t *testing.T, name string) *env {
	t.Helper()
	d, err := db.Open(config.DatabaseConfig{
		Driver: "sqlite3",
		DSN:    "file:" + name + "?mode=memory&cache=shared",
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if err := db.Migrate(d); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return &env{
		users:     store.NewUserStore(d),
		locations: store.NewLocationStore(d),
		sessions:  sessions.New("test-secret", false, 3600),
	}
}

// sessionCookie issues a cookie for the given user the way a login would.
func (e *env) sessionCookie(t *testing.T, userID int64, role string) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth", nil)
	if err := e.sessions.SetUser(rec, req, userID, role); err != nil {
		t.Fatalf("set session: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("no session cookie issued")
	}
	return cookies[0]
}

func doJSON(t *testing.T, h http.Handler, method, target, body string, cookies ...*http.Cookie) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := map[string]json.RawMessage{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("response not a JSON object: %v\n%s", err, rec.Body.String())
		}
	}
	return rec, out
}

func errorMessage(t *testing.T, out map[string]json.RawMessage) string {
	t.Helper()
	var msg string
	if raw, ok := out["error"]; ok {
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("error field: %v", err)
		}
	}
	return msg
}

func TestAuth_Login(t *testing.T) {
	e := newEnv(t, "auth_login")
	h := NewAuth(e.users, e.sessions)

	rec, _ := doJSON(t, h, http.MethodPost, "/api/auth",
		`{"email":"  admin@local  ","password":"admin123"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	var res struct {
		User models.UserResponse `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.User.Role != models.RoleAdmin || res.User.Email != db.DefaultAdminEmail {
		t.Fatalf("logged-in user: %+v", res.User)
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Fatal("login must set the session cookie")
	}
}

func TestAuth_LoginRejections(t *testing.T) {
	e := newEnv(t, "auth_reject")
	h := NewAuth(e.users, e.sessions)

	cases := []struct {
		name, body, msg string
		code            int
	}{
		{"empty body", `{}`, "Credenciales incompletas", http.StatusBadRequest},
		{"blank email", `{"email":"   ","password":"x"}`, "Credenciales incompletas", http.StatusBadRequest},
		{"unknown email", `{"email":"nadie@local","password":"x"}`, "Correo o contraseña incorrectos", http.StatusUnauthorized},
		{"wrong password", `{"email":"admin@local","password":"nope"}`, "Correo o contraseña incorrectos", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, out := doJSON(t, h, http.MethodPost, "/api/auth", tc.body)
			if rec.Code != tc.code {
				t.Fatalf("status = %d, want %d", rec.Code, tc.code)
			}
			if got := errorMessage(t, out); got != tc.msg {
				t.Fatalf("message = %q, want %q", got, tc.msg)
			}
		})
	}
}

func TestAuth_Me(t *testing.T) {
	e := newEnv(t, "auth_me")
	h := NewAuth(e.users, e.sessions)

	rec, out := doJSON(t, h, http.MethodGet, "/api/auth", "")
	if rec.Code != http.StatusUnauthorized || errorMessage(t, out) != "No autenticado" {
		t.Fatalf("anonymous whoami: %d %s", rec.Code, rec.Body.String())
	}

	admin, err := e.users.GetByEmail(t.Context(), db.DefaultAdminEmail)
	if err != nil {
		t.Fatal(err)
	}
	cookie := e.sessionCookie(t, admin.ID, admin.Role)

	rec, _ = doJSON(t, h, http.MethodGet, "/api/auth", "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("whoami: %d %s", rec.Code, rec.Body.String())
	}
	var res struct {
		User models.UserResponse `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.User.ID != admin.ID {
		t.Fatalf("whoami returned %+v", res.User)
	}
}

func TestAuth_MeWithVanishedAccount(t *testing.T) {
	e := newEnv(t, "auth_vanished")
	h := NewAuth(e.users, e.sessions)

	u, err := e.users.Create(t.Context(), "Temp", "temp@example.com", "h", "user")
	if err != nil {
		t.Fatal(err)
	}
	cookie := e.sessionCookie(t, u.ID, u.Role)
	if err := e.users.Delete(t.Context(), u.ID); err != nil {
		t.Fatal(err)
	}

	rec, out := doJSON(t, h, http.MethodGet, "/api/auth", "", cookie)
	if rec.Code != http.StatusUnauthorized || errorMessage(t, out) != "No autenticado" {
		t.Fatalf("stale session: %d %s", rec.Code, rec.Body.String())
	}
	// The useless session is dropped in the same response.
	expired := false
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			expired = true
		}
	}
	if !expired {
		t.Fatal("stale session cookie not expired")
	}
}

func TestAuth_LogoutAlwaysOK(t *testing.T) {
	e := newEnv(t, "auth_logout")
	h := NewAuth(e.users, e.sessions)

	rec, _ := doJSON(t, h, http.MethodDelete, "/api/auth", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("logout without session: %d", rec.Code)
	}
	var res struct {
		OK bool `json:"ok"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil || !res.OK {
		t.Fatalf("logout body: %s", rec.Body.String())
	}
}

func TestAuth_MethodNotAllowed(t *testing.T) {
	e := newEnv(t, "auth_method")
	h := NewAuth(e.users, e.sessions)

	rec, out := doJSON(t, h, http.MethodPatch, "/api/auth", "")
	if rec.Code != http.StatusMethodNotAllowed || errorMessage(t, out) != "Metodo no permitido" {
		t.Fatalf("patch: %d %s", rec.Code, rec.Body.String())
	}
}

func TestLocations_ListAndCreate(t *testing.T) {
	e := newEnv(t, "loc_create")
	h := NewLocations(e.locations)

	rec, _ := doJSON(t, h, http.MethodGet, "/api/locations", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d", rec.Code)
	}
	var listRes struct {
		Locations []models.LocationResponse `json:"locations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listRes); err != nil {
		t.Fatal(err)
	}
	seeded := len(listRes.Locations)
	if seeded == 0 {
		t.Fatal("seeded locations missing from list")
	}

	rec, _ = doJSON(t, h, http.MethodPost, "/api/locations",
		`{"name":"  Test  ","type":"sucursal","lat":20.5,"lng":-103.3,"notes":"nota"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	var createRes struct {
		Location models.LocationResponse `json:"location"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &createRes); err != nil {
		t.Fatal(err)
	}
	l := createRes.Location
	if l.ID == 0 || l.Name != "Test" || l.CreatedAt <= 0 {
		t.Fatalf("created location: %+v", l)
	}

	rec, _ = doJSON(t, h, http.MethodGet, "/api/locations", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &listRes); err != nil {
		t.Fatal(err)
	}
	if len(listRes.Locations) != seeded+1 {
		t.Fatalf("list after create: %d, want %d", len(listRes.Locations), seeded+1)
	}
	// Newest entry leads the list.
	if listRes.Locations[0].ID != l.ID {
		t.Fatalf("new location not first: %+v", listRes.Locations[0])
	}
}

func TestLocations_CreateRejections(t *testing.T) {
	e := newEnv(t, "loc_reject")
	h := NewLocations(e.locations)

	cases := []struct {
		name, body, msg string
	}{
		{"missing type", `{"name":"X","lat":20,"lng":-103}`, "Datos incompletos"},
		{"blank name", `{"name":"  ","type":"otro","lat":20,"lng":-103}`, "Datos incompletos"},
		{"missing coords", `{"name":"X","type":"otro"}`, "Datos incompletos"},
		{"lat out of range", `{"name":"X","type":"otro","lat":91,"lng":0}`, "Latitud/longitud fuera de rango"},
		{"lng out of range", `{"name":"X","type":"otro","lat":0,"lng":-181}`, "Latitud/longitud fuera de rango"},
		{"not json", `{{{`, "Datos incompletos"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, out := doJSON(t, h, http.MethodPost, "/api/locations", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if got := errorMessage(t, out); got != tc.msg {
				t.Fatalf("message = %q, want %q", got, tc.msg)
			}
		})
	}
}

func TestLocations_Delete(t *testing.T) {
	e := newEnv(t, "loc_delete")
	h := NewLocations(e.locations)

	rec, out := doJSON(t, h, http.MethodDelete, "/api/locations?id=abc", "")
	if rec.Code != http.StatusBadRequest || errorMessage(t, out) != "ID invalido" {
		t.Fatalf("bad id: %d %s", rec.Code, rec.Body.String())
	}

	l, err := e.locations.Create(t.Context(), "Borrar", "otro", 20.0, -103.0, "")
	if err != nil {
		t.Fatal(err)
	}
	rec, _ = doJSON(t, h, http.MethodDelete, "/api/locations?id="+itoa(l.ID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body.String())
	}
	var res struct {
		Deleted int64 `json:"deleted"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil || res.Deleted != l.ID {
		t.Fatalf("delete body: %s", rec.Body.String())
	}
}

func TestUsers_CreateDefaultsRole(t *testing.T) {
	e := newEnv(t, "users_create")
	h := NewUsers(e.users)

	rec, _ := doJSON(t, h, http.MethodPost, "/api/users",
		`{"name":"Ana","email":"ana@example.com","password":"secreta"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	var res struct {
		User models.UserResponse `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.User.Role != models.RoleUser {
		t.Fatalf("role = %q, want default user", res.User.Role)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatal("response leaks the password field")
	}
}

func TestUsers_CreateRejections(t *testing.T) {
	e := newEnv(t, "users_reject")
	h := NewUsers(e.users)

	cases := []struct {
		name, body, msg string
		code            int
	}{
		{"missing password", `{"name":"X","email":"x@example.com"}`, "Datos incompletos", http.StatusBadRequest},
		{"bad role", `{"name":"X","email":"x@example.com","password":"p","role":"root"}`, "Rol invalido", http.StatusBadRequest},
		{"duplicate email", `{"name":"X","email":"admin@local","password":"p"}`, "El correo ya existe", http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, out := doJSON(t, h, http.MethodPost, "/api/users", tc.body)
			if rec.Code != tc.code {
				t.Fatalf("status = %d, want %d", rec.Code, tc.code)
			}
			if got := errorMessage(t, out); got != tc.msg {
				t.Fatalf("message = %q, want %q", got, tc.msg)
			}
		})
	}
}

func TestUsers_Update(t *testing.T) {
	e := newEnv(t, "users_update")
	h := NewUsers(e.users)

	u, err := e.users.Create(t.Context(), "Ana", "ana@example.com", "h", "user")
	if err != nil {
		t.Fatal(err)
	}

	rec, out := doJSON(t, h, http.MethodPut, "/api/users", `{"name":"X"}`)
	if rec.Code != http.StatusBadRequest || errorMessage(t, out) != "ID requerido" {
		t.Fatalf("missing id: %d %s", rec.Code, rec.Body.String())
	}

	rec, out = doJSON(t, h, http.MethodPut, "/api/users", `{"id":`+itoa(u.ID)+`}`)
	if rec.Code != http.StatusBadRequest || errorMessage(t, out) != "Nada que actualizar" {
		t.Fatalf("empty update: %d %s", rec.Code, rec.Body.String())
	}

	rec, out = doJSON(t, h, http.MethodPut, "/api/users",
		`{"id":`+itoa(u.ID)+`,"email":"admin@local"}`)
	if rec.Code != http.StatusConflict || errorMessage(t, out) != "El correo ya existe" {
		t.Fatalf("taken email: %d %s", rec.Code, rec.Body.String())
	}

	// Keeping your own email is not a conflict.
	rec, _ = doJSON(t, h, http.MethodPut, "/api/users",
		`{"id":`+itoa(u.ID)+`,"email":"ana@example.com","name":"Ana Maria","role":"admin"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	var res struct {
		User models.UserResponse `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.User.Name != "Ana Maria" || res.User.Role != models.RoleAdmin {
		t.Fatalf("updated user: %+v", res.User)
	}
}

func TestAdminOnlyGate(t *testing.T) {
	e := newEnv(t, "users_gate")
	gated := middleware.AdminOnly(e.sessions, e.users, NewUsers(e.users))

	rec, out := doJSON(t, gated, http.MethodGet, "/api/users", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: %d", rec.Code)
	}
	if errorMessage(t, out) != "Solo administradores pueden gestionar usuarios" {
		t.Fatalf("message: %s", rec.Body.String())
	}

	regular, err := e.users.Create(t.Context(), "Ana", "ana@example.com", "h", "user")
	if err != nil {
		t.Fatal(err)
	}
	rec, _ = doJSON(t, gated, http.MethodGet, "/api/users", "", e.sessionCookie(t, regular.ID, regular.Role))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("non-admin: %d", rec.Code)
	}

	admin, err := e.users.GetByEmail(t.Context(), db.DefaultAdminEmail)
	if err != nil {
		t.Fatal(err)
	}
	adminCookie := e.sessionCookie(t, admin.ID, admin.Role)
	rec, _ = doJSON(t, gated, http.MethodGet, "/api/users", "", adminCookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin: %d %s", rec.Code, rec.Body.String())
	}

	// The stored role decides; a demotion bites on the next request even
	// though the cookie still says admin.
	role := models.RoleUser
	if _, err := e.users.Update(t.Context(), admin.ID, store.UserUpdate{Role: &role}); err != nil {
		t.Fatal(err)
	}
	rec, _ = doJSON(t, gated, http.MethodGet, "/api/users", "", adminCookie)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("demoted admin: %d", rec.Code)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
