package signal

import (
	"net/http"

	"callroom/internal/core/domain"
	apperrors "callroom/pkg/errors"
)

// ackMappings translates domain errors into acknowledgement codes.
var ackMappings = []apperrors.Mapping{
	{Err: domain.ErrInvalidParams, Code: apperrors.CodeInvalidParams, HTTPStatus: http.StatusBadRequest},
	{Err: domain.ErrInvalidCredential, Code: apperrors.CodeInvalidAccessToken, HTTPStatus: http.StatusUnauthorized},
	{Err: domain.ErrPresenceNotFound, Code: apperrors.CodeInvalidAccessToken, HTTPStatus: http.StatusUnauthorized},
	{Err: domain.ErrInvalidRefreshToken, Code: apperrors.CodeInvalidRefreshToken, HTTPStatus: http.StatusUnauthorized},
	{Err: domain.ErrAlreadyInRoom, Code: apperrors.CodeAlreadyInRoom, HTTPStatus: http.StatusConflict},
	{Err: domain.ErrRoomNotFound, Code: apperrors.CodeRoomNotFound, HTTPStatus: http.StatusNotFound},
	{Err: domain.ErrNotRoomOwner, Code: apperrors.CodeNotRoomOwner, HTTPStatus: http.StatusForbidden},
	{Err: domain.ErrNotRoomMember, Code: apperrors.CodeNotRoomMember, HTTPStatus: http.StatusForbidden},
	{Err: domain.ErrNoStateChange, Code: apperrors.CodeNoStateChange, HTTPStatus: http.StatusConflict},
	{Err: domain.ErrRoomAlreadyExists, Code: apperrors.CodeRoomAlreadyExists, HTTPStatus: http.StatusConflict},
	{Err: domain.ErrAlreadyWaiting, Code: apperrors.CodeAlreadyWaiting, HTTPStatus: http.StatusConflict},
	{Err: domain.ErrNotWaiting, Code: apperrors.CodeNotWaiting, HTTPStatus: http.StatusConflict},
	{Err: domain.ErrNotInRoom, Code: apperrors.CodeNotWaiting, HTTPStatus: http.StatusConflict},
	{Err: domain.ErrJoinRequestNotFound, Code: apperrors.CodeJoinRequestNotFound, HTTPStatus: http.StatusNotFound},
	{Err: domain.ErrParticipantUnavailable, Code: apperrors.CodeParticipantGone, HTTPStatus: http.StatusGone},
}

// ClassifyError maps err to the code and message sent back to the client.
func ClassifyError(err error) *apperrors.AppError {
	return apperrors.Classify(err, ackMappings)
}

// ackData merges the result fields into {code, message}.
func ackData(code apperrors.ErrorCode, result map[string]interface{}) map[string]interface{} {
	data := make(map[string]interface{}, len(result)+2)
	for k, v := range result {
		data[k] = v
	}
	data["code"] = int(code)
	data["message"] = code.Message()
	return data
}
