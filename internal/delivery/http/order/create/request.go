package create

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/orderflow/fulfillment_system/internal/domain/models"
)

var (
	errEmptyItems      = errors.New("items can't be empty")
	errInvalidQuantity = errors.New("invalid quantity")
	errInvalidUserUUID = errors.New("invalid user_uuid")
	errInvalidItemUUID = errors.New("invalid product_uuid")
)

var validate = validator.New()

type CreateOrderRequest struct {
	UserUUID string `json:"user_uuid" validate:"required,uuid"`
	Items    []Item `json:"items" validate:"required,min=1,dive"`
}

type Item struct {
	ProductUUID string `json:"product_uuid" validate:"required,uuid"`
	Quantity    int    `json:"quantity" validate:"required,gt=0"`
}

func (req *CreateOrderRequest) validateRequest() error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	for _, fieldErr := range validationErrs {
		switch fieldErr.Field() {
		case "UserUUID":
			return errInvalidUserUUID
		case "Items":
			return errEmptyItems
		case "ProductUUID":
			return errInvalidItemUUID
		case "Quantity":
			return errInvalidQuantity
		}
	}

	return err
}

func (req *CreateOrderRequest) toDTO() models.Order {
	items := make([]models.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, models.OrderItem{
			ProductUUID: uuid.MustParse(item.ProductUUID),
			Quantity:    item.Quantity,
		})
	}

	return models.Order{
		UserUUID: uuid.MustParse(req.UserUUID),
		Items:    items,
	}
}
