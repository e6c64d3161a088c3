package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/valyala/fastjson"

	nt "opgateway/entity"
)

// SaveFavourite posts a named filter, the api returns the new id
func (api *Api) SaveFavourite(name string, tokens []nt.Token) (fav nt.Favourite, err error) {

	name = strings.TrimSpace(name)
	if name == "" {
		err = errors.Errorf("favourite needs a name")
		return
	}

	filter, err := json.Marshal(tokens)
	if err != nil {
		err = errors.Wrapf(err, "failed to encode filter")
		return
	}

	query := url.Values{}
	query.Set("name", name)
	query.Set("filter", string(filter))

	body, err := api.do(http.MethodPost, "/users/filters", query)
	if err != nil {
		return
	}

	var id string
	err = api.parse(body, func(val *fastjson.Value) error {
		if val.Type() != fastjson.TypeString {
			return errors.Errorf("expected id, got %s", val.Type())
		}
		id = string(val.GetStringBytes())
		return nil
	})
	if err != nil {
		return
	}

	fav = nt.Favourite{Id: id, Name: name, Tokens: tokens}
	api.logger.Info(context.Background(), "saved favourite", "id", id, "name", name)
	return
}

// Favourites lists the user's saved filters
func (api *Api) Favourites() (favs []nt.Favourite, err error) {

	body, err := api.get("/users/filters", nil)
	if err != nil {
		return
	}

	err = api.parse(body, func(val *fastjson.Value) error {
		items, err := val.Array()
		if err != nil {
			return errors.Wrapf(err, "favourites is not a list")
		}

		for _, item := range items {
			fav := nt.Favourite{
				Id:   string(item.GetStringBytes("_id")),
				Name: string(item.GetStringBytes("name")),
			}

			// filter is a json encoded token list, stored as text
			filter := item.Get("filter")
			raw := []byte{}
			switch {
			case filter == nil:
			case filter.Type() == fastjson.TypeString:
				raw = filter.GetStringBytes()
			default:
				raw = filter.MarshalTo(nil)
			}

			if len(raw) > 0 {
				err = json.Unmarshal(raw, &fav.Tokens)
				if err != nil {
					return errors.Wrapf(err, "bad filter in favourite %q", fav.Name)
				}
			}
			favs = append(favs, fav)
		}
		return nil
	})
	return
}
