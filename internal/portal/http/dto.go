package http

import (
	"time"

	"github.com/pointerhq/portal/internal/portal/domain"
	"github.com/pointerhq/portal/internal/portal/service"
)

// Request/response bodies keep the Portuguese field names the frontend
// already speaks.

type createUserRequest struct {
	Nome   string `json:"nome"`
	Email  string `json:"email"`
	Senha  string `json:"senha,omitempty"`
	CPF    string `json:"cpf"`
	Cargo  string `json:"cargo"`
	Setor  string `json:"setor"`
	Perfil string `json:"perfil,omitempty"`
}

type updateUserRequest struct {
	Nome   string `json:"nome"`
	Email  string `json:"email"`
	CPF    string `json:"cpf"`
	Cargo  string `json:"cargo"`
	Setor  string `json:"setor"`
	Perfil string `json:"perfil"`
	Status bool   `json:"status"`
}

type toggleStatusRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Email string `json:"email"`
}

type updatePasswordRequest struct {
	Email string `json:"email"`
	Senha string `json:"senha"`
}

type userResponse struct {
	ID        string `json:"id"`
	Nome      string `json:"nome"`
	Matricula string `json:"matricula"`
	Email     string `json:"email"`
	CPF       string `json:"cpf"`
	Cargo     string `json:"cargo"`
	Setor     string `json:"setor"`
	Perfil    string `json:"perfil"`
	Status    bool   `json:"status"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Nome:      u.Name,
		Matricula: u.Matricula,
		Email:     u.Email,
		CPF:       u.CPF,
		Cargo:     u.JobTitle,
		Setor:     u.Sector,
		Perfil:    u.Profile,
		Status:    u.Active,
	}
}

type userPageResponse struct {
	Content       []userResponse `json:"content"`
	Page          int            `json:"page"`
	Size          int            `json:"size"`
	TotalElements int64          `json:"totalElements"`
}

func toUserPageResponse(p service.UserPage) userPageResponse {
	content := make([]userResponse, len(p.Users))
	for i, u := range p.Users {
		content[i] = toUserResponse(u)
	}
	return userPageResponse{
		Content:       content,
		Page:          p.Page,
		Size:          p.Size,
		TotalElements: p.Total,
	}
}

type announcementRequest struct {
	Titulo         string     `json:"titulo"`
	Descricao      string     `json:"descricao"`
	Setor          string     `json:"setor"`
	PerfilDestino  string     `json:"perfilDestino,omitempty"`
	DataPublicacao *time.Time `json:"dataPublicacao,omitempty"`
}

func (r announcementRequest) toInput() service.AnnouncementInput {
	in := service.AnnouncementInput{
		Title:       r.Titulo,
		Description: r.Descricao,
		Sector:      r.Setor,
		TargetRole:  r.PerfilDestino,
	}
	if r.DataPublicacao != nil {
		in.PublishedAt = *r.DataPublicacao
	}
	return in
}

type announcementResponse struct {
	ID             string    `json:"id"`
	Titulo         string    `json:"titulo"`
	Descricao      string    `json:"descricao"`
	Setor          string    `json:"setor"`
	PerfilDestino  string    `json:"perfilDestino,omitempty"`
	DataPublicacao time.Time `json:"dataPublicacao"`
}

func toAnnouncementResponse(a domain.Announcement) announcementResponse {
	return announcementResponse{
		ID:             a.ID,
		Titulo:         a.Title,
		Descricao:      a.Description,
		Setor:          a.Sector,
		PerfilDestino:  a.TargetRole,
		DataPublicacao: a.PublishedAt,
	}
}

type readerResponse struct {
	UsuarioID   string    `json:"usuarioId"`
	Nome        string    `json:"nome,omitempty"`
	Email       string    `json:"email,omitempty"`
	DataLeitura time.Time `json:"dataLeitura"`
}

func toReaderResponses(readers []service.Reader) []readerResponse {
	out := make([]readerResponse, len(readers))
	for i, r := range readers {
		out[i] = readerResponse{
			UsuarioID:   r.UserID,
			Nome:        r.Name,
			Email:       r.Email,
			DataLeitura: r.ReadAt,
		}
	}
	return out
}
