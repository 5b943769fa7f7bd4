package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"testing"
	"time"

	"github.com/mealbook/recipes_api/internal/pkg/config"
	"github.com/mealbook/recipes_api/internal/recipes/api/server"
	"github.com/mealbook/recipes_api/internal/recipes/app"
	"github.com/mealbook/recipes_api/internal/recipes/domain/models"
	"github.com/stretchr/testify/suite"
)

type RecipeSuite struct {
	suite.Suite
	app     app.RecipesApp
	cancel  context.CancelFunc
	baseURL string
	client  *http.Client
}

func (rs *RecipeSuite) SetupSuite() {
	cmd := exec.Command("docker", "compose", "-f", "./test-compose.yaml", "up", "--build", "-d")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		rs.T().Fatalf("cannot start docker compose error: %v", err)
	}

	cfg, err := config.New("config_test.yaml")
	if err != nil {
		rs.T().Fatalf("cannot get config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	a, err := app.New(ctx, cfg)
	if err != nil {
		cancel()
		rs.T().Fatalf("cannot get app error: %v", err)
	}

	rs.app = a
	rs.cancel = cancel
	rs.baseURL = "http://" + cfg.Server.Addr + "/v1"
	rs.client = &http.Client{Timeout: time.Second * 5} //nolint:exhaustruct

	go a.Run(ctx)
	time.Sleep(time.Second * 2) // Время для запуска сервера и баз данных.
}

func (rs *RecipeSuite) TearDownSuite() {
	rs.cancel()

	cmd := exec.Command("docker", "compose", "-f", "./test-compose.yaml", "down", "-v")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		rs.T().Fatalf("cannot down docker containers error: %v", err)
	}
}

func (rs *RecipeSuite) do(method, path, token string, body interface{}) (int, []byte) {
	rs.T().Helper()

	var reqBody io.Reader

	if body != nil {
		b, err := json.Marshal(body)
		rs.Require().NoError(err)
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, rs.baseURL+path, reqBody)
	rs.Require().NoError(err)

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := rs.client.Do(req)
	rs.Require().NoError(err)
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	rs.Require().NoError(err)

	return resp.StatusCode, respBody
}

func (rs *RecipeSuite) register(email string) string {
	rs.T().Helper()

	code, body := rs.do(http.MethodPost, "/auth/register", "", map[string]string{
		"email":    email,
		"password": "testpass123",
	})
	rs.Require().Equal(http.StatusCreated, code)

	var tr server.TokenResponse
	rs.Require().NoError(json.Unmarshal(body, &tr))
	rs.Require().NotEmpty(tr.Token)

	return tr.Token
}

func (rs *RecipeSuite) createRecipe(token, title string, tags ...string) models.Recipe {
	rs.T().Helper()

	tagBodies := make([]map[string]string, 0, len(tags))
	for _, tag := range tags {
		tagBodies = append(tagBodies, map[string]string{"name": tag})
	}

	code, body := rs.do(http.MethodPost, "/recipes", token, map[string]interface{}{
		"title":        title,
		"description":  "Sample description",
		"time_minutes": 30,
		"price":        "5.99",
		"link":         "https://example.com/recipe.pdf",
		"tags":         tagBodies,
	})
	rs.Require().Equal(http.StatusCreated, code)

	var r models.Recipe
	rs.Require().NoError(json.Unmarshal(body, &r))

	return r
}

func (rs *RecipeSuite) TestAuth() {
	code, _ := rs.do(http.MethodGet, "/recipes", "", nil)
	rs.Require().Equal(http.StatusUnauthorized, code)

	token := rs.register("auth@example.com")
	rs.Require().NotEmpty(token)

	// case-insensitive duplicate
	code, _ = rs.do(http.MethodPost, "/auth/register", "", map[string]string{
		"email":    "auth@EXAMPLE.com",
		"password": "testpass123",
	})
	rs.Require().Equal(http.StatusBadRequest, code)

	code, _ = rs.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "auth@example.com",
		"password": "wrongpass",
	})
	rs.Require().Equal(http.StatusUnauthorized, code)

	code, body := rs.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "auth@example.com",
		"password": "testpass123",
	})
	rs.Require().Equal(http.StatusOK, code)

	var tr server.TokenResponse
	rs.Require().NoError(json.Unmarshal(body, &tr))
	rs.Require().NotEmpty(tr.Token)
}

func (rs *RecipeSuite) TestRecipeFiltering() {
	token := rs.register("filter@example.com")

	r1 := rs.createRecipe(token, "recipe1", "chocolate")
	r2 := rs.createRecipe(token, "recipe2", "Vegan")
	rs.createRecipe(token, "recipe3")

	both := rs.createRecipe(token, "both tags", "chocolate", "Vegan")

	tagID := func(r models.Recipe, name string) int64 {
		for _, t := range r.Tags {
			if t.Name == name {
				return t.ID
			}
		}
		rs.T().Fatalf("tag %q not found on recipe %d", name, r.ID)

		return 0
	}

	filter := "?tags=" + jsonNum(tagID(r1, "chocolate")) + "," + jsonNum(tagID(r2, "Vegan"))

	code, body := rs.do(http.MethodGet, "/recipes"+filter, token, nil)
	rs.Require().Equal(http.StatusOK, code)

	var recipes []models.Recipe
	rs.Require().NoError(json.Unmarshal(body, &recipes))

	// both-tag recipe appears exactly once, newest first
	rs.Require().Len(recipes, 3)
	rs.Require().Equal(both.ID, recipes[0].ID)
	rs.Require().Equal(r2.ID, recipes[1].ID)
	rs.Require().Equal(r1.ID, recipes[2].ID)

	code, _ = rs.do(http.MethodGet, "/recipes?tags=abc", token, nil)
	rs.Require().Equal(http.StatusBadRequest, code)
}

func (rs *RecipeSuite) TestOwnershipIsolation() {
	tokenA := rs.register("alice@example.com")
	tokenB := rs.register("bob@example.com")

	r := rs.createRecipe(tokenA, "alices recipe", "Vegan")

	code, body := rs.do(http.MethodGet, "/recipes", tokenB, nil)
	rs.Require().Equal(http.StatusOK, code)

	var recipes []models.Recipe
	rs.Require().NoError(json.Unmarshal(body, &recipes))
	rs.Require().Empty(recipes)

	path := "/recipes/" + jsonNum(r.ID)

	code, _ = rs.do(http.MethodGet, path, tokenB, nil)
	rs.Require().Equal(http.StatusNotFound, code)

	code, _ = rs.do(http.MethodPatch, path, tokenB, map[string]string{"title": "hijack"})
	rs.Require().Equal(http.StatusNotFound, code)

	code, _ = rs.do(http.MethodDelete, path, tokenB, nil)
	rs.Require().Equal(http.StatusNotFound, code)

	// still intact for the owner
	code, _ = rs.do(http.MethodGet, path, tokenA, nil)
	rs.Require().Equal(http.StatusOK, code)
}

func (rs *RecipeSuite) TestRecipeUpdate() {
	token := rs.register("update@example.com")

	r := rs.createRecipe(token, "original", "chocolate")
	path := "/recipes/" + jsonNum(r.ID)

	// unknown fields, including user, are ignored
	code, body := rs.do(http.MethodPatch, path, token, map[string]interface{}{
		"title": "patched",
		"user":  999,
	})
	rs.Require().Equal(http.StatusOK, code)

	var updated models.Recipe
	rs.Require().NoError(json.Unmarshal(body, &updated))
	rs.Require().Equal("patched", updated.Title)
	rs.Require().Len(updated.Tags, 1)

	// owner unchanged
	code, _ = rs.do(http.MethodGet, path, token, nil)
	rs.Require().Equal(http.StatusOK, code)

	// clearing tags keeps the tag records
	code, body = rs.do(http.MethodPatch, path, token, map[string]interface{}{
		"tags": []map[string]string{},
	})
	rs.Require().Equal(http.StatusOK, code)
	rs.Require().NoError(json.Unmarshal(body, &updated))
	rs.Require().Empty(updated.Tags)

	code, body = rs.do(http.MethodGet, "/tags", token, nil)
	rs.Require().Equal(http.StatusOK, code)

	var tags []models.Tag
	rs.Require().NoError(json.Unmarshal(body, &tags))
	rs.Require().Len(tags, 1)
	rs.Require().Equal("chocolate", tags[0].Name)
}

func (rs *RecipeSuite) TestTagAssignmentFilter() {
	token := rs.register("tags@example.com")

	rs.createRecipe(token, "tagged", "Breakfast")
	rs.createRecipe(token, "more tags", "Dessert", "Breakfast")

	// an unassigned tag appears after its recipe is deleted
	orphan := rs.createRecipe(token, "to delete", "Lunch")
	code, _ := rs.do(http.MethodDelete, "/recipes/"+jsonNum(orphan.ID), token, nil)
	rs.Require().Equal(http.StatusNoContent, code)

	names := func(path string) []string {
		code, body := rs.do(http.MethodGet, path, token, nil)
		rs.Require().Equal(http.StatusOK, code)

		var tags []models.Tag
		rs.Require().NoError(json.Unmarshal(body, &tags))

		res := make([]string, 0, len(tags))
		for _, t := range tags {
			res = append(res, t.Name)
		}

		return res
	}

	// descending by name, no duplicates
	rs.Require().Equal([]string{"Lunch", "Dessert", "Breakfast"}, names("/tags"))
	rs.Require().Equal([]string{"Dessert", "Breakfast"}, names("/tags?assigned_only=1"))
	rs.Require().Equal([]string{"Lunch"}, names("/tags?assigned_only=2"))

	code, _ = rs.do(http.MethodGet, "/tags?assigned_only=9", token, nil)
	rs.Require().Equal(http.StatusBadRequest, code)
}

func (rs *RecipeSuite) TestTagRenameAndDelete() {
	token := rs.register("tagcrud@example.com")

	r := rs.createRecipe(token, "recipe", "Vgan")
	tag := r.Tags[0]
	path := "/tags/" + jsonNum(tag.ID)

	code, body := rs.do(http.MethodPatch, path, token, map[string]string{"name": "Vegan"})
	rs.Require().Equal(http.StatusOK, code)

	var renamed models.Tag
	rs.Require().NoError(json.Unmarshal(body, &renamed))
	rs.Require().Equal("Vegan", renamed.Name)

	code, _ = rs.do(http.MethodDelete, path, token, nil)
	rs.Require().Equal(http.StatusNoContent, code)

	// recipe survives tag deletion
	code, _ = rs.do(http.MethodGet, "/recipes/"+jsonNum(r.ID), token, nil)
	rs.Require().Equal(http.StatusOK, code)
}

func jsonNum(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestRecipeSuite(t *testing.T) {
	if os.Getenv("INTEGRATION") == "" {
		t.Skip("set INTEGRATION to run docker compose based tests")
	}

	suite.Run(t, new(RecipeSuite))
}
