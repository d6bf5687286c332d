package people

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/helo0ks/heloyse4bimestre/services/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Handler contém os handlers HTTP de pessoas, cargos e funcionários
type Handler struct {
	people    *PersonUseCase
	positions *PositionUseCase
	employees *EmployeeUseCase
	tracer    trace.Tracer
}

// NewHandler cria uma nova instância de Handler
func NewHandler(people *PersonUseCase, positions *PositionUseCase, employees *EmployeeUseCase, tracer trace.Tracer) *Handler {
	return &Handler{
		people:    people,
		positions: positions,
		employees: employees,
		tracer:    tracer,
	}
}

// RegisterAdmin registra as rotas administrativas do módulo
func (h *Handler) RegisterAdmin(r gin.IRouter) {
	people := r.Group("/people")
	people.GET("", h.ListPeople)
	people.GET("/:cpf", h.GetPerson)
	people.POST("", h.CreatePerson)
	people.PUT("/:cpf", h.UpdatePerson)
	people.DELETE("/:cpf", h.DeletePerson)

	positions := r.Group("/positions")
	positions.GET("", h.ListPositions)
	positions.GET("/:id", h.GetPosition)
	positions.POST("", h.CreatePosition)
	positions.PUT("/:id", h.UpdatePosition)
	positions.DELETE("/:id", h.DeletePosition)

	employees := r.Group("/employees")
	employees.GET("", h.ListEmployees)
	employees.GET("/available-people", h.AvailablePeople)
	employees.GET("/:cpf", h.GetEmployee)
	employees.POST("", h.CreateEmployee)
	employees.PUT("/:cpf", h.UpdateEmployee)
	employees.DELETE("/:cpf", h.DeleteEmployee)
}

func (h *Handler) ListPeople(c *gin.Context) {
	people, err := h.people.List(c.Request.Context())
	if err != nil {
		shared.RespondError(c, err, "failed to list people")
		return
	}
	c.JSON(http.StatusOK, people)
}

func (h *Handler) GetPerson(c *gin.Context) {
	person, err := h.people.Get(c.Request.Context(), c.Param("cpf"))
	if err != nil {
		shared.RespondError(c, err, "failed to get person")
		return
	}
	c.JSON(http.StatusOK, person)
}

func (h *Handler) CreatePerson(c *gin.Context) {
	var req PersonInput
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.BindError(c, err)
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "create_person")
	defer span.End()

	person, err := h.people.Create(ctx, req)
	if err != nil {
		span.RecordError(err)
		shared.RespondError(c, err, "failed to create person")
		return
	}

	span.SetAttributes(attribute.String("cpf", person.CPF))
	c.JSON(http.StatusCreated, person)
}

func (h *Handler) UpdatePerson(c *gin.Context) {
	var req PersonInput
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.BindError(c, err)
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "update_person")
	defer span.End()
	span.SetAttributes(attribute.String("cpf", c.Param("cpf")))

	person, err := h.people.Update(ctx, c.Param("cpf"), req)
	if err != nil {
		span.RecordError(err)
		shared.RespondError(c, err, "failed to update person")
		return
	}
	c.JSON(http.StatusOK, person)
}

func (h *Handler) DeletePerson(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "delete_person")
	defer span.End()
	span.SetAttributes(attribute.String("cpf", c.Param("cpf")))

	if err := h.people.Delete(ctx, c.Param("cpf")); err != nil {
		span.RecordError(err)
		shared.RespondError(c, err, "failed to delete person")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "person deleted"})
}

func (h *Handler) ListPositions(c *gin.Context) {
	positions, err := h.positions.List(c.Request.Context())
	if err != nil {
		shared.RespondError(c, err, "failed to list positions")
		return
	}
	c.JSON(http.StatusOK, positions)
}

func (h *Handler) GetPosition(c *gin.Context) {
	id, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	position, err := h.positions.Get(c.Request.Context(), id)
	if err != nil {
		shared.RespondError(c, err, "failed to get position")
		return
	}
	c.JSON(http.StatusOK, position)
}

func (h *Handler) CreatePosition(c *gin.Context) {
	var req PositionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.BindError(c, err)
		return
	}
	position, err := h.positions.Create(c.Request.Context(), req)
	if err != nil {
		shared.RespondError(c, err, "failed to create position")
		return
	}
	c.JSON(http.StatusCreated, position)
}

func (h *Handler) UpdatePosition(c *gin.Context) {
	id, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req PositionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.BindError(c, err)
		return
	}
	position, err := h.positions.Update(c.Request.Context(), id, req)
	if err != nil {
		shared.RespondError(c, err, "failed to update position")
		return
	}
	c.JSON(http.StatusOK, position)
}

func (h *Handler) DeletePosition(c *gin.Context) {
	id, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.positions.Delete(c.Request.Context(), id); err != nil {
		shared.RespondError(c, err, "failed to delete position")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "position deleted"})
}

func (h *Handler) ListEmployees(c *gin.Context) {
	employees, err := h.employees.List(c.Request.Context())
	if err != nil {
		shared.RespondError(c, err, "failed to list employees")
		return
	}
	c.JSON(http.StatusOK, employees)
}

func (h *Handler) AvailablePeople(c *gin.Context) {
	people, err := h.employees.AvailablePeople(c.Request.Context())
	if err != nil {
		shared.RespondError(c, err, "failed to list available people")
		return
	}
	c.JSON(http.StatusOK, people)
}

func (h *Handler) GetEmployee(c *gin.Context) {
	employee, err := h.employees.Get(c.Request.Context(), c.Param("cpf"))
	if err != nil {
		shared.RespondError(c, err, "failed to get employee")
		return
	}
	c.JSON(http.StatusOK, employee)
}

func (h *Handler) CreateEmployee(c *gin.Context) {
	var req EmployeeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.BindError(c, err)
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "create_employee")
	defer span.End()
	span.SetAttributes(attribute.String("cpf", req.CPF))

	employee, err := h.employees.Create(ctx, req)
	if err != nil {
		span.RecordError(err)
		shared.RespondError(c, err, "failed to create employee")
		return
	}
	c.JSON(http.StatusCreated, employee)
}

func (h *Handler) UpdateEmployee(c *gin.Context) {
	var req EmployeeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.BindError(c, err)
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "update_employee")
	defer span.End()
	span.SetAttributes(attribute.String("cpf", c.Param("cpf")))

	employee, err := h.employees.Update(ctx, c.Param("cpf"), req)
	if err != nil {
		span.RecordError(err)
		shared.RespondError(c, err, "failed to update employee")
		return
	}
	c.JSON(http.StatusOK, employee)
}

func (h *Handler) DeleteEmployee(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "delete_employee")
	defer span.End()
	span.SetAttributes(attribute.String("cpf", c.Param("cpf")))

	if err := h.employees.Delete(ctx, c.Param("cpf")); err != nil {
		span.RecordError(err)
		shared.RespondError(c, err, "failed to delete employee")
		return
	}
	c.Status(http.StatusNoContent)
}
