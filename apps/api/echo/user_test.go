package echoapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"

	echoapi "github.com/trezcool/campus/apps/api/echo"
	"github.com/trezcool/campus/core/user"
	testutil "github.com/trezcool/campus/tests"
)

func Test_userApi_login(t *testing.T) {
	resetDB()

	col := testutil.CreateCollege(t, repos.College, "Campus One")
	pwd := "LolC@t123"
	student := testutil.CreateUser(t, repos.User, col.ID, "Hero", "hero_kid", "hero@test.cd", pwd, []string{user.RoleStudent}, true)
	_ = testutil.CreateUser(t, repos.User, col.ID, "N Dog", "ndog_kid", "ndog@test.cd", pwd, []string{user.RoleStudent}, false)

	reqMsg := "this field is required"
	authFailed := marchallObj(t, httpErr{Error: "authentication failed"})

	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoapi.LoginRequest{Username: reqMsg, Password: reqMsg}),
		},
		{
			name: "unknown user", wantCode: http.StatusBadRequest, wantData: authFailed,
			body: marchallObj(t, echoapi.LoginRequest{Username: "lol", Password: pwd}),
		},
		{
			name: "wrong password", wantCode: http.StatusBadRequest, wantData: authFailed,
			body: marchallObj(t, echoapi.LoginRequest{Username: student.Username, Password: "lol"}),
		},
		{
			name: "inactive user", wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
			body: marchallObj(t, echoapi.LoginRequest{Username: "ndog@test.cd", Password: pwd}),
		},
		{name: "with username", wantCode: http.StatusOK, body: marchallObj(t, echoapi.LoginRequest{Username: "HERO_KID", Password: pwd})},
		{name: "with email", wantCode: http.StatusOK, body: marchallObj(t, echoapi.LoginRequest{Username: student.Email, Password: pwd})},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/users/login"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode != http.StatusOK {
				checkCodeAndData(t, tt, rec)
				return
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			var respData echoapi.LoginResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
				t.Fatalf("json.Unmarshal() failed! err %v", err)
			}
			claims := new(echoapi.Claims)
			if _, err := jwt.ParseWithClaims(respData.Token, claims, func(*jwt.Token) (interface{}, error) {
				return []byte(conf.SecretKey), nil
			}); err != nil {
				t.Fatalf("jwt.ParseWithClaims() failed! err %v", err)
			}
			if claims.Subject != student.ID || claims.CollegeID != col.ID || !claims.IsStudent {
				t.Errorf("failed! unexpected claims %+v", claims)
			}

			refreshed, err := repos.User.GetUser(context.Background(), user.Filter{ID: student.ID})
			if err != nil {
				t.Fatalf("GetUser() failed: %v", err)
			}
			if refreshed.LastLogin == nil {
				t.Error("failed! lastLogin not set")
			}
		})
	}
}

func Test_userApi_refreshToken(t *testing.T) {
	resetDB()

	col := testutil.CreateCollege(t, repos.College, "Campus One")
	naughty := testutil.CreateUser(t, repos.User, col.ID, "N Dog", "ndog_kid", "ndog@test.cd", "", []string{user.RoleStudent}, false) // 😂
	student := testutil.CreateUser(t, repos.User, col.ID, "Hero", "hero_kid", "hero@test.cd", "", []string{user.RoleStudent}, true)

	// older than the refresh threshold
	unrefreshableClaims := echoapi.GetUserClaims(student, conf, time.Now().Add(-2*conf.Server.JWTRefreshExpirationDelta).Unix())
	unrefreshableToken, err := echoapi.GenerateToken(unrefreshableClaims, conf.SecretKey)
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Invalid token", token: "lol", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"})},
		{name: "Inactive user not allowed", token: getToken(t, naughty), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})},
		{name: "Token refreshed", token: getToken(t, student), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/users/token-refresh"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			// cannot guess new token.. just check that it's not empty
			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData echoapi.LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_create(t *testing.T) {
	resetDB()

	col := testutil.CreateCollege(t, repos.College, "Campus One")
	admin := testutil.CreateUser(t, repos.User, col.ID, "Admin", "admin_user", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, repos.User, col.ID, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	adminToken := getToken(t, admin)

	pwd := "LolC@t123"
	reqMsg := "this field is required"

	type extra struct {
		wantRoles []string
	}
	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Admin required", token: getToken(t, teacher), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{
			name: "required fields", token: adminToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"name":            reqMsg,
				"username":        "one of username or email is required",
				"email":           "one of username or email is required",
				"password":        reqMsg,
				"passwordConfirm": reqMsg,
			}),
		},
		{
			name: "username taken", token: adminToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.NewUser{Name: "Kid", Username: teacher.Username, Password: pwd, PasswordConfirm: pwd}),
			wantData: marchallObj(t, map[string]string{"username": "a user with this username already exists"}),
		},
		{
			name: "cannot grant a higher role", token: adminToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.NewUser{Name: "Boss", Username: "the_boss", Password: pwd, PasswordConfirm: pwd, Roles: []string{user.RoleAdminOwner}}),
			wantData: marchallObj(t, map[string]string{"roles": "not enough rights to set these roles"}),
		},
		{
			name: "created", token: adminToken, wantCode: http.StatusCreated,
			body:  marchallObj(t, user.NewUser{Name: "Kid", Username: "new_kid", Email: "kid@test.cd", Password: pwd, PasswordConfirm: pwd, Roles: []string{user.RoleStudent}}),
			extra: extra{wantRoles: []string{user.RoleStudent}},
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/users/register"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if extra, ok := tt.extra.(extra); ok {
				var usr user.User
				if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if usr.CollegeID != col.ID {
					t.Errorf("failed! collegeId = %s; want %s", usr.CollegeID, col.ID)
				}
				if !usr.IsActive || len(usr.Roles) != len(extra.wantRoles) || usr.Roles[0] != extra.wantRoles[0] {
					t.Errorf("failed! unexpected user %+v", usr)
				}
				stored, err := repos.User.GetUser(context.Background(), user.Filter{ID: usr.ID})
				if err != nil {
					t.Fatalf("GetUser() failed: %v", err)
				}
				if err = stored.CheckPassword(pwd); err != nil {
					t.Errorf("failed! password not set: %v", err)
				}
			}
		})
	}
}

func Test_userApi_query(t *testing.T) {
	resetDB()

	path := func(search, ordering string, isActive *bool, roles ...string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if ordering != "" {
			v.Add("ordering", ordering)
		}
		if isActive != nil {
			v.Add("isActive", strconv.FormatBool(*isActive))
		}
		for _, r := range roles {
			v.Add("role", r)
		}
		return "/api/users?" + v.Encode()
	}
	bPtr := func(b bool) *bool { return &b }

	now := time.Now()
	col := testutil.CreateCollege(t, repos.College, "Campus One")
	other := testutil.CreateCollege(t, repos.College, "Campus Two")

	usr1 := testutil.CreateUser(t, repos.User, col.ID, "User", "awesome", "awe@test.cd", "", nil, true, now.Add(1*time.Hour))
	student := testutil.CreateUser(t, repos.User, col.ID, "Hero", "hero_kid", "user3@test.cd", "", []string{user.RoleStudent}, true, now.Add(2*time.Hour))
	admin := testutil.CreateUser(t, repos.User, col.ID, "Admin", "admin_user", "admin@test.cd", "", []string{user.RoleAdmin}, true, now.Add(3*time.Hour))
	teacher := testutil.CreateUser(t, repos.User, col.ID, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true, now.Add(4*time.Hour))
	naughty := testutil.CreateUser(t, repos.User, col.ID, "N Dog", "ndog_kid", "ndog@test.cd", "", []string{user.RoleStudent}, false, now.Add(5*time.Hour)) // 😂
	_ = testutil.CreateUser(t, repos.User, other.ID, "Stranger", "stranger", "stranger@test.cd", "", []string{user.RoleStudent}, true)
	homeless := testutil.CreateUser(t, repos.User, "", "Homeless", "homeless", "homeless@test.cd", "", []string{user.RoleAdmin}, true)

	adminToken := getToken(t, admin)
	empty := marchallList(t)

	tests := []httpTest{
		{name: "Auth required", path: "/api/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Admin required", path: "/api/users", token: getToken(t, student), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{
			name: "College required", path: "/api/users", token: getToken(t, homeless), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "user not attached to a college"}),
		},
		{
			name: "Get all (own college, newest first)", path: "/api/users", token: adminToken,
			wantData: marchallList(t, naughty, teacher, admin, student, usr1),
		},
		{name: "search (unknown)", path: path("lol", "", nil), token: adminToken, wantData: empty},
		{name: "search=HERO", path: path("HERO", "", nil), token: adminToken, wantData: marchallList(t, student)},
		{name: "role (unknown)", path: path("", "", nil, "lol"), token: adminToken, wantData: empty},
		{
			name: "role=teacher:,student:", path: path("", "", nil, user.RoleTeacher, user.RoleStudent),
			token: adminToken, wantData: marchallList(t, naughty, teacher, student),
		},
		{name: "isActive=false", path: path("", "", bPtr(false)), token: adminToken, wantData: marchallList(t, naughty)},
		{
			name: "order by name", path: path("", "name", nil), token: adminToken,
			wantData: marchallList(t, admin, student, naughty, teacher, usr1),
		},
		{
			name: "filtering & ordering", path: path("", "-name", bPtr(true), user.RoleTeacher, user.RoleStudent), token: adminToken,
			wantData: marchallList(t, teacher, student),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_queryRoles(t *testing.T) {
	resetDB()

	col := testutil.CreateCollege(t, repos.College, "Campus One")
	admin := testutil.CreateUser(t, repos.User, col.ID, "Admin", "admin_user", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	tt := httpTest{method: http.MethodGet, path: "/api/users/roles", token: getToken(t, admin), wantCode: http.StatusOK, wantData: marchallObj(t, user.Roles)}
	req, rec := newAuthRequest(tt.method, tt.path, tt.token)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)
}
