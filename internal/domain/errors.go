package domain

import "errors"

// ErrNoData indica que no existe dato para (símbolo, fecha): serie intradía
// ausente o símbolo fuera de la tabla de volúmenes. Se recupera localmente
// como "sin candidato", nunca es fatal; cualquier otro error se considera
// inesperado y se propaga.
var ErrNoData = errors.New("no intraday data")
