package service

// RoomBroadcaster entrega un evento a cada conexión unida a la sala de una
// sesión, exactamente una vez por conexión.
type RoomBroadcaster interface {
	BroadcastToRoom(sessionID, event string, payload any)
}

// StaffBroadcaster entrega un evento a cada miembro del staff conectado,
// exactamente una vez por conexión, mire o no alguna sala.
type StaffBroadcaster interface {
	BroadcastToStaff(event string, payload any)
}
