package httpapi

import "github.com/tinoosan/journal/internal/rent"

var _ DepositReader = (*rent.Book)(nil)
