package tkrouter

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mpdriver/mpdriver/engine/core"
	"github.com/mpdriver/mpdriver/engine/infra/server/router"
	"github.com/mpdriver/mpdriver/engine/task/aggregate"
	"github.com/mpdriver/mpdriver/engine/task/chain"
	"github.com/mpdriver/mpdriver/engine/task/uc"
	"github.com/mpdriver/mpdriver/pkg/logger"
)

type rejection struct {
	status   int
	code     string
	messages core.Messages
}

var rejections = map[chain.Cause]rejection{
	chain.CauseNoTaskForUser: {http.StatusNotFound, router.ErrNotFoundCode, core.Messages{
		"ru": "Нет задачи с указанным ID для данного пользователя",
		"en": "There is no task with this ID for the current user",
	}},
	chain.CauseProhibitedStatus: {http.StatusForbidden, router.ErrForbiddenCode, core.Messages{
		"ru": "Вы не можете установить данный статус",
		"en": "You can't set this status",
	}},
	chain.CauseMissingCancelReason: {http.StatusBadRequest, router.ErrBadRequestCode, core.Messages{
		"ru": "Вы должны указать причину, по которой вы не смогли завершить задачу",
		"en": "Attribute error_text should be provided",
	}},
	chain.CauseChainFailed: {http.StatusBadRequest, router.ErrBadRequestCode, core.Messages{
		"ru": "Ошибка в отправке данных: статусы отправляются парами " +
			"task(InProgress) -> subtask(InProgress), " +
			"subtask(Completed/Cancelled) -> subtask(InProgress) или " +
			"subtask(Completed/Cancelled) -> task(Completed)",
		"en": "Statuses must be sent in pairs: " +
			"task(InProgress) -> subtask(InProgress), " +
			"subtask(Completed/Cancelled) -> subtask(InProgress) or " +
			"subtask(Completed/Cancelled) -> task(Completed)",
	}},
}

var internalMessages = core.Messages{
	"ru": "Внутренняя ошибка сервера",
	"en": "Internal server error",
}

var badRequestMessages = core.Messages{
	"ru": "Некорректный запрос",
	"en": "Malformed request",
}

func respondTaskError(c *gin.Context, err error) {
	lang := router.PreferredLanguage(c)
	var rejected *chain.RejectedError
	if errors.As(err, &rejected) {
		r := rejections[rejected.Cause]
		problem := &core.Problem{
			Status: r.status,
			Title:  string(rejected.Cause),
			Detail: rejected.Error(),
			Extras: map[string]any{"code": r.code},
		}
		router.RespondProblem(c, problem.WithMessages(r.messages, lang))
		return
	}
	problem := &core.Problem{
		Status: http.StatusInternalServerError,
		Title:  "InternalError",
		Detail: "failed to process tasks",
		Extras: map[string]any{"code": router.ErrInternalCode},
	}
	var perr *uc.PersistError
	switch {
	case errors.Is(err, aggregate.ErrLookupFailure):
		problem.Title = "LookupFailure"
		problem.Detail = "stored task data could not be resolved"
	case errors.As(err, &perr):
		problem.Title = "PersistFailure"
		problem.Detail = "status changes were only partially recorded"
		problem.Extras["written"] = perr.Written
		problem.Extras["total"] = perr.Total
	}
	logger.FromContext(c.Request.Context()).Error("Task request failed", "kind", problem.Title, "error", err)
	router.RespondProblem(c, problem.WithMessages(internalMessages, lang))
}

func respondBadRequest(c *gin.Context, detail string) {
	problem := &core.Problem{
		Status: http.StatusBadRequest,
		Title:  "BadRequest",
		Detail: detail,
		Extras: map[string]any{"code": router.ErrBadRequestCode},
	}
	router.RespondProblem(c, problem.WithMessages(badRequestMessages, router.PreferredLanguage(c)))
}
