package restclient

import "github.com/samirrijal/mapview/internal/core/domain"

type profileBody struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

func newProfileBody(p domain.ConnectionProfile) profileBody {
	p = p.WithDefaults()
	return profileBody{
		Host:     p.Host,
		Port:     p.Port,
		Database: p.Database,
		Role:     p.Role,
		Password: p.Password,
	}
}

type idRequest struct {
	profileBody
	IDs    []int64 `json:"ids"`
	Unique bool    `json:"unique"`
}

func newIDRequest(r domain.FetchRequest) idRequest {
	ids := r.IDs
	if ids == nil {
		ids = []int64{}
	}
	return idRequest{profileBody: newProfileBody(r.Profile), IDs: ids, Unique: r.Unique}
}

type objectRequest struct {
	profileBody
	Format string  `json:"format"`
	IDs    []int64 `json:"ids"`
}

func newObjectRequest(r domain.FetchRequest) objectRequest {
	ids := r.IDs
	if ids == nil {
		ids = []int64{}
	}
	return objectRequest{profileBody: newProfileBody(r.Profile), Format: r.Format, IDs: ids}
}

type wirePoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type wirePlace struct {
	ID       int64         `json:"id"`
	Name     string        `json:"name"`
	Polygons [][]wirePoint `json:"polygons"`
}

type placeResponse struct {
	OK      bool        `json:"ok"`
	Places  []wirePlace `json:"places"`
	Message string      `json:"message"`
}

type wireRoad struct {
	ID    int64         `json:"id"`
	Names []string      `json:"names"`
	Lines [][]wirePoint `json:"lines"`
}

type roadResponse struct {
	OK      bool       `json:"ok"`
	Roads   []wireRoad `json:"roads"`
	Message string     `json:"message"`
}

type wireObject struct {
	ID       int64         `json:"id"`
	Names    []string      `json:"names"`
	Type     string        `json:"type"`
	Lines    [][]wirePoint `json:"lines"`
	Polygons [][]wirePoint `json:"polygons"`
}

type objectResponse struct {
	Success bool         `json:"success"`
	Result  []wireObject `json:"result"`
	Message string       `json:"message"`
}

type formatResponse struct {
	Result  []string `json:"result"`
	Message string   `json:"message"`
}

type errorBody struct {
	Message string `json:"message"`
}
