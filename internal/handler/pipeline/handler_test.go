package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/smartystreets/goconvey/convey"

	"pomelo/internal/model/pipeline"
)

// fakePipelineService 内存假服务，按字段预设返回值
type fakePipelineService struct {
	project   *pipeline.Project
	projects  []*pipeline.Project
	scenes    []*pipeline.Scene
	chains    map[string][]*pipeline.Task
	url       string
	err       error
	cancelled []string
	resumed   []string
	deleted   []string
}

func (f *fakePipelineService) CreateProject(ctx context.Context, topic string, totalDurationSec int, style pipeline.Style) (*pipeline.Project, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.project, nil
}

func (f *fakePipelineService) GetProject(ctx context.Context, projectID string) (*pipeline.Project, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.project, nil
}

func (f *fakePipelineService) ListProjects(ctx context.Context, page, pageSize int) ([]*pipeline.Project, int64, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.projects, int64(len(f.projects)), nil
}

func (f *fakePipelineService) GetScenes(ctx context.Context, projectID string) ([]*pipeline.Scene, map[string][]*pipeline.Task, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.scenes, f.chains, nil
}

func (f *fakePipelineService) CancelProject(ctx context.Context, projectID string) error {
	if f.err != nil {
		return f.err
	}
	f.cancelled = append(f.cancelled, projectID)
	return nil
}

func (f *fakePipelineService) ResumeProject(ctx context.Context, projectID string) error {
	if f.err != nil {
		return f.err
	}
	f.resumed = append(f.resumed, projectID)
	return nil
}

func (f *fakePipelineService) DeleteProject(ctx context.Context, projectID string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, projectID)
	return nil
}

func (f *fakePipelineService) GetArtifactURL(ctx context.Context, projectID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

func testProject() *pipeline.Project {
	now := time.Now()
	return &pipeline.Project{
		ID:               "project-1",
		Topic:            "山间清晨的薄雾",
		Style:            pipeline.StyleCinematic,
		TotalDurationSec: 24,
		VisualSeed:       12345,
		Status:           pipeline.ProjectStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func setupRouter(svc *fakePipelineService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	hdl := NewHandler(svc)

	engine := gin.New()
	v1 := engine.Group("/api/v1")
	v1.POST("/projects", hdl.CreateProject)
	v1.GET("/projects", hdl.ListProjects)
	v1.GET("/projects/:project_id", hdl.GetProject)
	v1.DELETE("/projects/:project_id", hdl.DeleteProject)
	v1.GET("/projects/:project_id/scenes", hdl.GetScenes)
	v1.POST("/projects/:project_id/cancel", hdl.CancelProject)
	v1.POST("/projects/:project_id/resume", hdl.ResumeProject)
	v1.GET("/projects/:project_id/artifact", hdl.GetArtifact)
	return engine
}

func TestHandler_CreateProject(t *testing.T) {
	Convey("POST /api/v1/projects 创建项目", t, func() {
		svc := &fakePipelineService{project: testProject()}
		engine := setupRouter(svc)

		Convey("合法请求返回 201 和项目ID", func() {
			body := `{"topic":"山间清晨的薄雾","total_duration_sec":24,"style":"cinematic"}`
			w := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/api/v1/projects", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			engine.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusCreated)
			So(w.Body.String(), ShouldContainSubstring, `"project_id":"project-1"`)
		})

		Convey("缺少必填字段返回 400", func() {
			body := `{"topic":"山间清晨的薄雾"}`
			w := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/api/v1/projects", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			engine.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("未知风格返回 400", func() {
			body := `{"topic":"主题","total_duration_sec":24,"style":"watercolor"}`
			w := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/api/v1/projects", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			engine.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("服务失败返回 500", func() {
			svc.err = fmt.Errorf("mongo unavailable")
			body := `{"topic":"主题","total_duration_sec":24,"style":"cinematic"}`
			w := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/api/v1/projects", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			engine.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusInternalServerError)
		})
	})
}

func TestHandler_GetProject(t *testing.T) {
	Convey("GET /api/v1/projects/:project_id 获取项目", t, func() {
		Convey("存在时返回 200 和项目信息", func() {
			engine := setupRouter(&fakePipelineService{project: testProject()})
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/projects/project-1", nil))

			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"id":"project-1"`)
			So(w.Body.String(), ShouldContainSubstring, `"visual_seed":12345`)
		})

		Convey("不存在时返回 404", func() {
			engine := setupRouter(&fakePipelineService{err: fmt.Errorf("not found")})
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/projects/missing", nil))

			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestHandler_GetScenes(t *testing.T) {
	Convey("GET /api/v1/projects/:project_id/scenes 返回场景和任务链", t, func() {
		scene := &pipeline.Scene{ID: "scene-1", ProjectID: "project-1", Index: 0,
			DurationSec: 8, Style: pipeline.StyleCinematic,
			State: pipeline.SceneStateCompleted, FinalClipURL: "http://clips/0.mp4"}
		task := &pipeline.Task{ID: "t-1", SceneID: "scene-1", Kind: pipeline.TaskKindBase,
			State: pipeline.TaskStateSucceeded, ResultURL: "http://clips/0.mp4", SubmittedAt: time.Now()}

		engine := setupRouter(&fakePipelineService{
			scenes: []*pipeline.Scene{scene},
			chains: map[string][]*pipeline.Task{"scene-1": {task}},
		})

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/projects/project-1/scenes", nil))

		So(w.Code, ShouldEqual, http.StatusOK)
		So(w.Body.String(), ShouldContainSubstring, `"final_clip_url":"http://clips/0.mp4"`)
		So(w.Body.String(), ShouldContainSubstring, `"style":"cinematic"`)
		So(w.Body.String(), ShouldContainSubstring, `"kind":"base"`)
	})
}

func TestHandler_CancelAndResume(t *testing.T) {
	Convey("取消和恢复接口透传到服务层", t, func() {
		svc := &fakePipelineService{}
		engine := setupRouter(svc)

		Convey("取消成功返回 200", func() {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/projects/project-1/cancel", nil))

			So(w.Code, ShouldEqual, http.StatusOK)
			So(svc.cancelled, ShouldResemble, []string{"project-1"})
		})

		Convey("恢复成功返回 200", func() {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/projects/project-1/resume", nil))

			So(w.Code, ShouldEqual, http.StatusOK)
			So(svc.resumed, ShouldResemble, []string{"project-1"})
		})

		Convey("终态项目取消失败返回 400", func() {
			svc.err = fmt.Errorf("project already completed")
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/projects/project-1/cancel", nil))

			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestHandler_DeleteProject(t *testing.T) {
	Convey("DELETE /api/v1/projects/:project_id 软删除项目", t, func() {
		Convey("删除成功返回 200", func() {
			svc := &fakePipelineService{}
			engine := setupRouter(svc)
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/v1/projects/project-1", nil))

			So(w.Code, ShouldEqual, http.StatusOK)
			So(svc.deleted, ShouldResemble, []string{"project-1"})
		})

		Convey("项目不存在返回 404", func() {
			engine := setupRouter(&fakePipelineService{err: fmt.Errorf("project not found")})
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/v1/projects/missing", nil))

			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestHandler_GetArtifact(t *testing.T) {
	Convey("GET /api/v1/projects/:project_id/artifact 返回预签名URL", t, func() {
		Convey("成片存在时返回 200", func() {
			engine := setupRouter(&fakePipelineService{url: "http://storage/artifacts/project-1/final.mp4?sig=x"})
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/projects/project-1/artifact", nil))

			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "final.mp4")
		})

		Convey("成片不存在时返回 404", func() {
			engine := setupRouter(&fakePipelineService{err: fmt.Errorf("artifact not found")})
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/projects/project-1/artifact", nil))

			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}
