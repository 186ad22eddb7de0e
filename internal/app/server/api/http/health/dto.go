package health

type Input struct{}

type Output struct {
	Body Response
}

// Response - database пустое, если сервис запущен без БД.
type Response struct {
	Status   string `json:"status" example:"OK" doc:"Состояние backend"`
	Database string `json:"database,omitempty" example:"OK" doc:"Результат ping БД"`
}
