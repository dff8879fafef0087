package dto

import "time"

// CreateSerializationRequest entrada para registrar un rango de numeración.
// NumeroActual es opcional; si se omite arranca en NumeroInicial.
type CreateSerializationRequest struct {
	BranchID       string `json:"idSucursal" validate:"required"`
	DocumentTypeID string `json:"idTipoComprobante" validate:"required"`
	Series         string `json:"serie" validate:"required,max=10"`
	StartNumber    int64  `json:"numeroInicial" validate:"min=0"`
	CurrentNumber  *int64 `json:"numeroActual"`
	EndNumber      *int64 `json:"numeroFinal"`
	IsDefault      bool   `json:"porDefecto"`
}

// UpdateSerializationRequest solo admite cambiar el número final (nil = sin límite).
type UpdateSerializationRequest struct {
	EndNumber *int64 `json:"numeroFinal"`
}

// SetDefaultSerializationRequest marca una serie como la de uso por defecto.
type SetDefaultSerializationRequest struct {
	BranchID       string `json:"idSucursal" validate:"required"`
	DocumentTypeID string `json:"idTipoComprobante" validate:"required"`
	Series         string `json:"serie" validate:"required"`
}

// SerializationResponse salida de un rango.
type SerializationResponse struct {
	ID             string    `json:"id"`
	BranchID       string    `json:"idSucursal"`
	DocumentTypeID string    `json:"idTipoComprobante"`
	Series         string    `json:"serie"`
	StartNumber    int64     `json:"numeroInicial"`
	CurrentNumber  int64     `json:"numeroActual"`
	EndNumber      *int64    `json:"numeroFinal"`
	Remaining      *int64    `json:"disponibles"`
	IsDefault      bool      `json:"porDefecto"`
	Exhausted      bool      `json:"agotada"`
	CreatedAt      time.Time `json:"fechaCreacion"`
	UpdatedAt      time.Time `json:"fechaActualizacion"`
}

// SerializationListResponse rangos de una sucursal.
type SerializationListResponse struct {
	Items []SerializationResponse `json:"items"`
}
